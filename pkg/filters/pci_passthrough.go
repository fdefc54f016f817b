package filters

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

func init() {
	Register("PciPassthrough", func() Filter {
		return &PciPassthroughFilter{BaseFilter: BaseFilter{name: "PciPassthrough"}}
	})
}

// PciPassthroughFilter passes a host unconditionally when the request
// has no PCI requests, and otherwise defers to the host's PCI device
// stats to check whether the cumulative requested counts are available.
type PciPassthroughFilter struct {
	BaseFilter
}

func (f *PciPassthroughFilter) HostPasses(_ context.Context, _ *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	if len(props.PciRequests) == 0 {
		return true, nil
	}
	reqs := make([]hoststate.PciRequest, len(props.PciRequests))
	for i, r := range props.PciRequests {
		spec := make([]hoststate.PciDeviceSpec, len(r.Spec))
		for j, s := range r.Spec {
			spec[j] = hoststate.PciDeviceSpec{VendorID: s.VendorID, ProductID: s.ProductID}
		}
		reqs[i] = hoststate.PciRequest{Alias: r.Alias, Count: r.Count, Spec: spec}
	}
	return host.PciStats.SupportRequests(reqs), nil
}
