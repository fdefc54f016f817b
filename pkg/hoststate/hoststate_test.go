package hoststate

import (
	"testing"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/inventory"
	"github.com/cuemby/gantt-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateFromComputeNodePrefersDiskAvailableLeast(t *testing.T) {
	h := New("host-a", "node-a")
	least := int64(40)
	h.UpdateFromComputeNode(inventory.ComputeNodeRecord{
		Host:               "host-a",
		MemoryMB:           8192,
		FreeRamMB:          4096,
		LocalGB:            100,
		FreeDiskGB:         80,
		DiskAvailableLeast: &least,
		Vcpus:              8,
		VcpusUsed:          2,
		UpdatedAt:          time.Now(),
	})

	assert.Equal(t, int64(40*1024), h.FreeDiskMB)
}

func TestUpdateFromComputeNodeFallsBackToFreeDiskGB(t *testing.T) {
	h := New("host-a", "node-a")
	h.UpdateFromComputeNode(inventory.ComputeNodeRecord{
		Host:       "host-a",
		FreeDiskGB: 80,
		UpdatedAt:  time.Now(),
	})

	assert.Equal(t, int64(80*1024), h.FreeDiskMB)
}

// Invariant 4: update_from_compute_node is monotone.
func TestUpdateFromComputeNodeMonotonicGuard(t *testing.T) {
	h := New("host-a", "node-a")
	later := time.Now()
	earlier := later.Add(-time.Hour)

	h.UpdateFromComputeNode(inventory.ComputeNodeRecord{FreeRamMB: 1000, UpdatedAt: later})
	require.Equal(t, int64(1000), h.FreeRamMB)

	h.UpdateFromComputeNode(inventory.ComputeNodeRecord{FreeRamMB: 9999, UpdatedAt: earlier})
	assert.Equal(t, int64(1000), h.FreeRamMB, "an older record must be a no-op")
}

func TestUpdateFromComputeNodeParsesStatPrefixes(t *testing.T) {
	h := New("host-a", "node-a")
	h.UpdateFromComputeNode(inventory.ComputeNodeRecord{
		UpdatedAt: time.Now(),
		Stats: map[string]string{
			"num_instances":     "3",
			"num_proj_tenant-1": "2",
			"num_vm_active":     "3",
			"num_task_resize":   "1",
			"num_os_type_linux": "3",
			"io_workload":       "1",
		},
	})

	assert.Equal(t, 3, h.NumInstances)
	assert.Equal(t, 2, h.NumInstancesByProject["tenant-1"])
	assert.Equal(t, 3, h.VMStates["active"])
	assert.Equal(t, 1, h.TaskStates["resize"])
	assert.Equal(t, 3, h.NumInstancesByOSType["linux"])
	assert.Equal(t, 1, h.NumIOOps)
}

func TestUpdateFromComputeNodeSkipsMetricsWithoutName(t *testing.T) {
	h := New("host-a", "node-a")
	h.UpdateFromComputeNode(inventory.ComputeNodeRecord{
		UpdatedAt: time.Now(),
		Metrics: []types.Metric{
			{Name: "cpu_util", Value: 0.5},
			{Name: "", Value: 1},
		},
	})

	assert.Len(t, h.Metrics, 1)
	assert.Contains(t, h.Metrics, "cpu_util")
}

// Invariant 5.
func TestConsumeFromInstance(t *testing.T) {
	h := New("host-a", "node-a")
	h.FreeRamMB = 8192
	h.FreeDiskMB = 100 * 1024
	h.VcpusUsed = 0

	h.ConsumeFromInstance(types.InstanceType{MemoryMB: 2048, RootGB: 10, EphemeralGB: 5, VCPUs: 2}, "tenant-1", "", "", "linux", nil)

	assert.Equal(t, int64(8192-2048), h.FreeRamMB)
	assert.Equal(t, int64((100-15)*1024), h.FreeDiskMB)
	assert.Equal(t, 2, h.VcpusUsed)
	assert.Equal(t, 1, h.NumInstances)
	assert.Equal(t, 1, h.NumInstancesByProject["tenant-1"])
	assert.Equal(t, 1, h.VMStates[vmStateBuilding], "default vm_state is building")
	assert.Equal(t, 1, h.NumIOOps, "building instances count as an io op")
}

func TestConsumeFromInstanceIOHeavyTaskStates(t *testing.T) {
	h := New("host-a", "node-a")
	h.ConsumeFromInstance(types.InstanceType{}, "t", "active", "resize_migrating", "linux", nil)
	assert.Equal(t, 1, h.NumIOOps)

	h2 := New("host-a", "node-a")
	h2.ConsumeFromInstance(types.InstanceType{}, "t", "active", "", "linux", nil)
	assert.Equal(t, 0, h2.NumIOOps)
}

func TestCloneIsIndependent(t *testing.T) {
	h := New("host-a", "node-a")
	h.FreeRamMB = 4096
	h.Limits["vcpu"] = 16

	clone := h.Clone()
	clone.FreeRamMB = 0
	clone.Limits["vcpu"] = 0
	clone.ConsumeFromInstance(types.InstanceType{MemoryMB: 1}, "t", "", "", "", nil)

	assert.Equal(t, int64(4096), h.FreeRamMB)
	assert.Equal(t, float64(16), h.Limits["vcpu"])
	assert.Equal(t, 0, h.NumInstances, "mutating the clone must not touch the original")
}
