package filters

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

func init() {
	Register("ActiveCompute", func() Filter {
		return &ActiveComputeFilter{BaseFilter: BaseFilter{name: "ActiveCompute", once: true}}
	})
}

// ActiveComputeFilter fails a host whose owning service is
// administratively disabled, or that the liveness oracle reports is not
// currently up.
type ActiveComputeFilter struct {
	BaseFilter
}

func (f *ActiveComputeFilter) HostPasses(_ context.Context, fctx *Context, host *hoststate.HostState, _ types.FilterProperties) (bool, error) {
	if host.Service.Disabled {
		return false, nil
	}
	if fctx.Liveness == nil {
		return true, nil
	}
	key := host.Service.Host + "/" + host.Service.Binary
	return fctx.Liveness.IsUp(key), nil
}
