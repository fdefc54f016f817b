// Package filters implements the filter contract, the filter registry,
// and the chain that composes registered filters; force/ignore
// pre-processing is done by pkg/hostmanager before the chain runs.
// Concrete filters self-register via init() in their
// own files, the "dynamic filter discovery" design the host manager
// relies on to resolve scheduler_default_filters entries by name.
package filters

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/attestation"
	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/inventory"
	"github.com/cuemby/gantt-scheduler/pkg/liveness"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

// Filter is a predicate over (HostState, FilterProperties). A filter
// instance is constructed fresh per chain build (one per request), so
// filters that declare RunOncePerRequest may safely hold internal
// caches keyed only by the request's own data.
type Filter interface {
	Name() string
	RunOncePerRequest() bool
	HostPasses(ctx context.Context, fctx *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error)
}

// Context bundles the collaborators filters need beyond the host state
// and filter properties already passed to HostPasses: the inventory
// query interface (aggregate metadata, type affinity), the liveness
// oracle, the attestation cache, and the allocation-ratio defaults.
type Context struct {
	Inventory          inventory.Store
	Liveness           liveness.Oracle
	Attestation        *attestation.Cache
	CPUAllocationRatio float64
	RAMAllocationRatio float64
}

// BaseFilter supplies the RunOncePerRequest() plumbing most concrete
// filters need: embed it and set once in the constructor.
type BaseFilter struct {
	name string
	once bool
}

func (b BaseFilter) Name() string             { return b.name }
func (b BaseFilter) RunOncePerRequest() bool  { return b.once }
