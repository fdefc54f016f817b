package filters

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/log"
	"github.com/cuemby/gantt-scheduler/pkg/metrics"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

// Chain is an ordered, resolved set of filters built fresh for a single
// request so request-scoped filter caches (RunOncePerRequest) don't leak
// across requests.
type Chain struct {
	filters []Filter
}

// NewChain resolves names against the registry, constructing one fresh
// filter instance per name. Returns ErrUnknownFilter (via filters.New)
// if any name is not registered.
func NewChain(names []string) (*Chain, error) {
	resolved := make([]Filter, 0, len(names))
	for _, name := range names {
		f, err := New(name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, f)
	}
	return &Chain{filters: resolved}, nil
}

// Apply runs every filter over hosts in order, short-circuiting a host
// as soon as one filter rejects it. The chain always calls HostPasses
// once per (filter, host) pair; the RunOncePerRequest flag is honored
// only as a hint to the filter's own internal caching, per the
// "advisory hint" design decision.
func (c *Chain) Apply(ctx context.Context, fctx *Context, hosts []*hoststate.HostState, props types.FilterProperties) []*hoststate.HostState {
	logger := log.WithComponent("filter-chain")
	timer := metrics.NewTimer()
	survivors := hosts
	for _, f := range c.filters {
		next := make([]*hoststate.HostState, 0, len(survivors))
		eliminated := 0
		for _, h := range survivors {
			ok, err := f.HostPasses(ctx, fctx, h, props)
			if err != nil {
				logger.Warn().Err(err).Str("filter", f.Name()).Str("host", h.Host).Msg("filter evaluation failed, excluding host")
				eliminated++
				continue
			}
			if ok {
				next = append(next, h)
			} else {
				eliminated++
			}
		}
		if eliminated > 0 {
			metrics.FilterEliminationsTotal.WithLabelValues(f.Name()).Add(float64(eliminated))
		}
		survivors = next
		if len(survivors) == 0 {
			break
		}
	}

	outcome := "survivors"
	if len(survivors) == 0 {
		outcome = "exhausted"
	}
	timer.ObserveDurationVec(metrics.FilterChainDuration, outcome)
	return survivors
}
