// Package types defines the wire-level and domain value types shared by
// the scheduler's pipeline: the capability and service snapshots carried
// on host state, the per-request instance shape and filter properties,
// and the aggregate metadata consulted by a handful of filters.
package types

import "time"

// Capabilities is the immutable snapshot published by a compute node's
// most recent heartbeat. It is replaced wholesale by
// hoststate.HostState.UpdateCapabilities; nothing mutates it in place.
type Capabilities struct {
	HypervisorHostname string
	HypervisorType     string
	HypervisorVersion  int64
	CPUInfo            string
	SupportedInstances []SupportedInstance
	ReceivedAt         time.Time
}

// SupportedInstance is one (architecture, hypervisor type, vm mode)
// triple a compute node can run, as reported in its capabilities.
type SupportedInstance struct {
	Architecture   string
	HypervisorType string
	VMMode         string
}

// ServiceRecord is the immutable snapshot of the owning nova-style
// "compute" service record for a host, as returned by the inventory
// query interface.
type ServiceRecord struct {
	Host          string
	Binary        string
	Disabled      bool
	DisabledReason string
	LastHeartbeat time.Time
}

// Metric is one named, timestamped measurement reported by a compute
// node (e.g. cpu_util, disk_iops) alongside the collector that produced
// it.
type Metric struct {
	Name      string
	Value     float64
	Timestamp time.Time
	Source    string
}

// InstanceType is the requested resource shape: vcpus, memory, disk,
// and free-form extra specs.
type InstanceType struct {
	ID            string
	Name          string
	VCPUs         int
	MemoryMB      int64
	RootGB        int64
	EphemeralGB   int64
	ExtraSpecs    map[string]string
}

// PciRequest asks for a count of PCI passthrough devices matching a
// vendor/product (or alias) spec.
type PciRequest struct {
	Alias   string
	Count   int
	Spec    []PciDeviceSpec
}

// PciDeviceSpec identifies a class of PCI devices by vendor/product ID.
type PciDeviceSpec struct {
	VendorID  string
	ProductID string
}

// ImageProperties carries the subset of glance image metadata the
// image-properties filter cares about.
type ImageProperties struct {
	Architecture               string
	HypervisorType             string
	VMMode                     string
	HypervisorVersionRequires  string
}

// RequestSpec is the placement request payload: what to place, how
// many instances, and the image it boots from.
type RequestSpec struct {
	InstanceType InstanceType
	Image        ImageProperties
	NumInstances int
	ProjectID    string
}

// RetryInfo tracks hosts a previous scheduling attempt already tried
// and failed on, for filters/weighers that want to avoid repeats.
type RetryInfo struct {
	Hosts [][2]string // (host, node) pairs already attempted
}

// FilterProperties is the per-request bundle threaded through the
// filter and weigher chains. It is never persisted past one request.
type FilterProperties struct {
	Context      Context
	InstanceType InstanceType
	RequestSpec  RequestSpec
	PciRequests  []PciRequest
	IgnoreHosts  []string
	ForceHosts   []string
	ForceNodes   []string
	Retry        *RetryInfo
}

// Context is the authenticated caller identity threaded through a
// request. The RPC transport (out of scope) is responsible for
// populating it from the envelope.
type Context struct {
	UserID    string
	ProjectID string
	RequestID string
}

// AggregateRecord is a named grouping of hosts with attached
// string-valued metadata, as returned by the inventory query
// interface.
type AggregateRecord struct {
	UUID     string
	Name     string
	Hosts    []string
	Metadata map[string][]string
}

// Destination is one element of a successful placement result: the
// chosen (host, node) pair plus the oversubscription limits the
// filter chain computed for it.
type Destination struct {
	Host     string
	Node     string
	Limits   map[string]float64
}
