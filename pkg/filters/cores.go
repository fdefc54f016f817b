package filters

import (
	"context"
	"strconv"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

func init() {
	Register("Cores", func() Filter {
		return &CoresFilter{BaseFilter: BaseFilter{name: "Cores"}}
	})
	Register("AggregateCores", func() Filter {
		return &AggregateCoresFilter{BaseFilter: BaseFilter{name: "AggregateCores"}}
	})
}

// CoresFilter passes a host if its (allocation-ratio-adjusted) vCPU
// capacity can absorb the requested instance's vcpus, and stamps
// host.Limits["vcpu"] for downstream enforcement regardless of outcome.
type CoresFilter struct {
	BaseFilter
}

func (f *CoresFilter) HostPasses(ctx context.Context, fctx *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	return coresPass(host, props, fctx.CPUAllocationRatio)
}

// AggregateCoresFilter is identical to CoresFilter except the allocation
// ratio is taken from the minimum of the host's aggregate-scoped
// cpu_allocation_ratio metadata, falling back to the global ratio if no
// per-aggregate value is set or none parses.
type AggregateCoresFilter struct {
	BaseFilter
}

func (f *AggregateCoresFilter) HostPasses(ctx context.Context, fctx *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	ratio := fctx.CPUAllocationRatio
	if fctx.Inventory != nil {
		metadata, err := fctx.Inventory.AggregateMetadataByHost(ctx, host.Host)
		if err == nil {
			if values := metadata["cpu_allocation_ratio"]; len(values) > 0 {
				if min, ok := minFloat(values); ok {
					ratio = min
				}
			}
		}
	}
	return coresPass(host, props, ratio)
}

func coresPass(host *hoststate.HostState, props types.FilterProperties, ratio float64) (bool, error) {
	if host.VcpusTotal == 0 {
		// Fail safe: driver cannot report an accurate vcpu count.
		return true, nil
	}

	vcpusTotal := float64(host.VcpusTotal) * ratio
	if vcpusTotal > 0 {
		host.Limits["vcpu"] = vcpusTotal
	}
	return vcpusTotal-float64(host.VcpusUsed) >= float64(props.InstanceType.VCPUs), nil
}

func minFloat(values []string) (float64, bool) {
	best := 0.0
	found := false
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		if !found || f < best {
			best = f
			found = true
		}
	}
	return best, found
}
