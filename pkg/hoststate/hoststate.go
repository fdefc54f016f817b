// Package hoststate implements the scheduler's per-(host, node) cached
// snapshot: capabilities and service descriptor are immutable once
// constructed, resource counters are mutated only through
// UpdateFromComputeNode (cache refresh) and ConsumeFromInstance
// (request-scoped simulation of a placement).
package hoststate

import (
	"strconv"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/inventory"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

const (
	vmStateBuilding       = "building"
	taskStateResizeMigrating = "resize_migrating"
	taskStateRebuilding      = "rebuilding"
	taskStateResizePrep      = "resize_prep"
	taskStateImageSnapshot   = "image_snapshot"
	taskStateImageBackup     = "image_backup"
)

// HostState is the mutable/immutable-mixed per-host snapshot the
// placement pipeline reads and, on clones, mutates.
type HostState struct {
	Host string
	Node string

	Capabilities types.Capabilities
	Service      types.ServiceRecord

	TotalUsableRamMB  int64
	FreeRamMB         int64
	TotalUsableDiskGB int64
	FreeDiskMB        int64
	VcpusTotal        int
	VcpusUsed         int

	HypervisorType     string
	HypervisorVersion  int64
	HypervisorHostname string
	CPUInfo            string
	SupportedInstances []types.SupportedInstance

	Stats                  map[string]string
	NumInstances           int
	NumInstancesByProject  map[string]int
	VMStates               map[string]int
	TaskStates             map[string]int
	NumInstancesByOSType   map[string]int
	NumIOOps               int

	Metrics map[string]types.Metric

	// Limits is populated by filters (e.g. Cores sets "vcpu") for
	// downstream enforcement by compute nodes.
	Limits map[string]float64

	PciStats *PciDeviceStats

	Updated time.Time
}

// New constructs an empty HostState for a (host, node) pair, as happens
// on first observation of that pair by the host manager.
func New(host, node string) *HostState {
	return &HostState{
		Host:                  host,
		Node:                  node,
		NumInstancesByProject: make(map[string]int),
		VMStates:              make(map[string]int),
		TaskStates:            make(map[string]int),
		NumInstancesByOSType:  make(map[string]int),
		Metrics:               make(map[string]types.Metric),
		Limits:                make(map[string]float64),
		Stats:                 make(map[string]string),
	}
}

// UpdateCapabilities replaces the capability and service snapshots
// wholesale. Nothing else mutates these fields; callers must not retain
// a mutable reference into caps/service afterward.
func (h *HostState) UpdateCapabilities(caps types.Capabilities, service types.ServiceRecord) {
	h.Capabilities = caps
	h.Service = service
}

// UpdateFromComputeNode applies an inventory refresh. Behavior follows
// the monotonic freshness guard: a record older than the host's current
// Updated timestamp is a no-op.
func (h *HostState) UpdateFromComputeNode(rec inventory.ComputeNodeRecord) {
	if !h.Updated.IsZero() && !rec.UpdatedAt.IsZero() && h.Updated.After(rec.UpdatedAt) {
		return
	}

	h.TotalUsableRamMB = rec.MemoryMB
	h.FreeRamMB = rec.FreeRamMB
	h.TotalUsableDiskGB = rec.LocalGB

	freeDiskGB := rec.FreeDiskGB
	if rec.DiskAvailableLeast != nil {
		freeDiskGB = *rec.DiskAvailableLeast
	}
	h.FreeDiskMB = freeDiskGB * 1024

	h.VcpusTotal = rec.Vcpus
	h.VcpusUsed = rec.VcpusUsed
	h.HypervisorType = rec.HypervisorType
	h.HypervisorVersion = rec.HypervisorVersion
	h.HypervisorHostname = rec.HypervisorHostname
	h.CPUInfo = rec.CPUInfo
	h.SupportedInstances = rec.SupportedInstances

	if len(rec.PciPools) > 0 {
		pools := make([]PciDevicePool, len(rec.PciPools))
		for i, p := range rec.PciPools {
			pools[i] = PciDevicePool{VendorID: p.VendorID, ProductID: p.ProductID, Count: p.Count}
		}
		h.PciStats = NewPciDeviceStats(pools)
	} else {
		h.PciStats = nil
	}

	h.Stats = rec.Stats
	h.NumInstances = statInt(rec.Stats, "num_instances")
	h.NumInstancesByProject = statsByPrefix(rec.Stats, "num_proj_")
	h.VMStates = statsByPrefix(rec.Stats, "num_vm_")
	h.TaskStates = statsByPrefix(rec.Stats, "num_task_")
	h.NumInstancesByOSType = statsByPrefix(rec.Stats, "num_os_type_")
	h.NumIOOps = statInt(rec.Stats, "io_workload")

	h.Metrics = make(map[string]types.Metric, len(rec.Metrics))
	for _, m := range rec.Metrics {
		if m.Name == "" {
			continue
		}
		h.Metrics[m.Name] = m
	}

	h.Updated = rec.UpdatedAt
}

// ConsumeFromInstance simulates placement of one instance on a cloned
// host during scoring or multi-placement batching.
func (h *HostState) ConsumeFromInstance(it types.InstanceType, projectID, vmState, taskState, osType string, pciReqs []types.PciRequest) {
	diskMB := (it.RootGB + it.EphemeralGB) * 1024
	h.FreeRamMB -= it.MemoryMB
	h.FreeDiskMB -= diskMB
	h.VcpusUsed += it.VCPUs
	h.NumInstances++

	if vmState == "" {
		vmState = vmStateBuilding
	}
	if h.NumInstancesByProject == nil {
		h.NumInstancesByProject = make(map[string]int)
	}
	h.NumInstancesByProject[projectID]++
	if h.VMStates == nil {
		h.VMStates = make(map[string]int)
	}
	h.VMStates[vmState]++
	if h.TaskStates == nil {
		h.TaskStates = make(map[string]int)
	}
	h.TaskStates[taskState]++
	if h.NumInstancesByOSType == nil {
		h.NumInstancesByOSType = make(map[string]int)
	}
	h.NumInstancesByOSType[osType]++

	if len(pciReqs) > 0 && h.PciStats != nil {
		reqs := make([]PciRequest, len(pciReqs))
		for i, r := range pciReqs {
			spec := make([]PciDeviceSpec, len(r.Spec))
			for j, s := range r.Spec {
				spec[j] = PciDeviceSpec{VendorID: s.VendorID, ProductID: s.ProductID}
			}
			reqs[i] = PciRequest{Alias: r.Alias, Count: r.Count, Spec: spec}
		}
		h.PciStats.ApplyRequests(reqs)
	}

	if vmState == vmStateBuilding || isIOHeavyTaskState(taskState) {
		h.NumIOOps++
	}

	h.Updated = nowFunc()
}

func isIOHeavyTaskState(taskState string) bool {
	switch taskState {
	case taskStateResizeMigrating, taskStateRebuilding, taskStateResizePrep,
		taskStateImageSnapshot, taskStateImageBackup:
		return true
	default:
		return false
	}
}

// nowFunc is a seam so tests can observe that Updated is stamped without
// depending on wall-clock precision.
var nowFunc = time.Now

// Clone returns a deep copy so the filter/weigh/consume pipeline can
// mutate freely without touching the cache.
func (h *HostState) Clone() *HostState {
	clone := *h
	clone.NumInstancesByProject = cloneIntMap(h.NumInstancesByProject)
	clone.VMStates = cloneIntMap(h.VMStates)
	clone.TaskStates = cloneIntMap(h.TaskStates)
	clone.NumInstancesByOSType = cloneIntMap(h.NumInstancesByOSType)
	clone.Stats = cloneStringMap(h.Stats)
	clone.Limits = make(map[string]float64, len(h.Limits))
	for k, v := range h.Limits {
		clone.Limits[k] = v
	}
	clone.Metrics = make(map[string]types.Metric, len(h.Metrics))
	for k, v := range h.Metrics {
		clone.Metrics[k] = v
	}
	if h.SupportedInstances != nil {
		clone.SupportedInstances = append([]types.SupportedInstance(nil), h.SupportedInstances...)
	}
	clone.PciStats = h.PciStats.Clone()
	return &clone
}

func statInt(stats map[string]string, key string) int {
	v, ok := stats[key]
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return n
}

func statsByPrefix(stats map[string]string, prefix string) map[string]int {
	out := make(map[string]int)
	for k, v := range stats {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			n, _ := strconv.Atoi(v)
			out[k[len(prefix):]] = n
		}
	}
	return out
}

func cloneIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
