package filters

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

func init() {
	Register("Ram", func() Filter { return &RamFilter{BaseFilter: BaseFilter{name: "Ram"}} })
}

// RamFilter is Cores' memory analogue: ram_allocation_ratio plays the
// role cpu_allocation_ratio plays for CoresFilter. A host with no
// reported total RAM passes unconditionally, same fail-open rule as
// Cores.
type RamFilter struct {
	BaseFilter
}

func (f *RamFilter) HostPasses(_ context.Context, fctx *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	if host.TotalUsableRamMB == 0 {
		return true, nil
	}

	ratio := fctx.RAMAllocationRatio
	if ratio == 0 {
		ratio = 1.0
	}

	usedRamMB := host.TotalUsableRamMB - host.FreeRamMB
	totalUsableRamMB := float64(host.TotalUsableRamMB) * ratio
	host.Limits["memory_mb"] = totalUsableRamMB
	return totalUsableRamMB-float64(usedRamMB) >= float64(props.InstanceType.MemoryMB), nil
}
