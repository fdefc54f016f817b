package filters

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

func init() {
	Register("TypeAffinity", func() Filter {
		return &TypeAffinityFilter{BaseFilter: BaseFilter{name: "TypeAffinity"}}
	})
	Register("AggregateTypeAffinity", func() Filter {
		return &AggregateTypeAffinityFilter{BaseFilter: BaseFilter{name: "AggregateTypeAffinity", once: true}}
	})
}

// TypeAffinityFilter fails a host that currently runs any instance whose
// instance-type differs from the one requested, so at most one instance
// type ever lands on a given host.
type TypeAffinityFilter struct {
	BaseFilter
}

func (f *TypeAffinityFilter) HostPasses(ctx context.Context, fctx *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	if fctx.Inventory == nil {
		return true, nil
	}
	running, err := fctx.Inventory.InstanceTypesOnHost(ctx, host.Host)
	if err != nil {
		return false, err
	}
	for _, it := range running {
		if it.ID != props.InstanceType.ID {
			return false, nil
		}
	}
	return true, nil
}

// AggregateTypeAffinityFilter passes a host that belongs to no aggregate
// advertising an "instance_type" restriction, or whose restriction
// includes the requested type's name.
type AggregateTypeAffinityFilter struct {
	BaseFilter
}

func (f *AggregateTypeAffinityFilter) HostPasses(ctx context.Context, fctx *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	if fctx.Inventory == nil {
		return true, nil
	}
	metadata, err := fctx.Inventory.AggregateMetadataByHost(ctx, host.Host)
	if err != nil {
		return false, err
	}
	allowed, restricted := metadata["instance_type"]
	if !restricted || len(allowed) == 0 {
		return true, nil
	}
	for _, name := range allowed {
		if name == props.InstanceType.Name {
			return true, nil
		}
	}
	return false, nil
}
