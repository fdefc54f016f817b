package filters

import (
	"context"
	"strings"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/specs"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

const aggregateExtraSpecsScope = "aggregate_instance_extra_specs"

func init() {
	Register("AggregateExtraSpecs", func() Filter {
		return &AggregateExtraSpecsFilter{BaseFilter: BaseFilter{name: "AggregateExtraSpecs", once: true}}
	})
}

// AggregateExtraSpecsFilter requires that every extra_specs entry
// (unscoped, or scoped "aggregate_instance_extra_specs:key") matches at
// least one value of the corresponding aggregate metadata key on the
// host, under the comparator grammar.
type AggregateExtraSpecsFilter struct {
	BaseFilter
}

func (f *AggregateExtraSpecsFilter) HostPasses(ctx context.Context, fctx *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	if len(props.InstanceType.ExtraSpecs) == 0 {
		return true, nil
	}
	if fctx.Inventory == nil {
		return true, nil
	}
	metadata, err := fctx.Inventory.AggregateMetadataByHost(ctx, host.Host)
	if err != nil {
		return false, err
	}

	for key, requirement := range props.InstanceType.ExtraSpecs {
		scope, unscopedKey, ok := splitScope(key)
		if ok && scope != aggregateExtraSpecsScope {
			continue
		}
		values, present := metadata[unscopedKey]
		if !present || len(values) == 0 {
			return false, nil
		}
		if !specs.MatchAny(values, requirement) {
			return false, nil
		}
	}
	return true, nil
}

// splitScope splits "scope:name" into (scope, name, true), or returns
// ("", key, false) if key carries no scope prefix.
func splitScope(key string) (scope, name string, scoped bool) {
	idx := strings.Index(key, ":")
	if idx < 0 {
		return "", key, false
	}
	return key[:idx], key[idx+1:], true
}
