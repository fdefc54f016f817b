// Package scheduler implements the selection driver: the top-level
// orchestrator that turns a request spec into a list of destinations by
// running the filter chain, weigher chain, and a consume-reweigh loop
// once per requested instance slot.
package scheduler

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/events"
	"github.com/cuemby/gantt-scheduler/pkg/hostmanager"
	"github.com/cuemby/gantt-scheduler/pkg/log"
	"github.com/cuemby/gantt-scheduler/pkg/metrics"
	"github.com/cuemby/gantt-scheduler/pkg/schederr"
	"github.com/cuemby/gantt-scheduler/pkg/types"
	"github.com/cuemby/gantt-scheduler/pkg/weighers"
)

// Driver is the selection driver described in the spec: it owns no
// state of its own, only the chains it's configured with, and reads the
// live host cache fresh on every call.
type Driver struct {
	Manager      *hostmanager.Manager
	FilterNames  []string
	WeigherSpecs []weighers.Spec
	Events       *events.Broker
}

// New constructs a Driver. events may be nil if lifecycle publication
// isn't wanted (e.g. in tests).
func New(manager *hostmanager.Manager, filterNames []string, weigherSpecs []weighers.Spec, broker *events.Broker) *Driver {
	return &Driver{Manager: manager, FilterNames: filterNames, WeigherSpecs: weigherSpecs, Events: broker}
}

// SelectDestinations implements §4.7: pull the live cache, filter,
// weigh, then consume-and-reweigh once per requested instance slot.
func (d *Driver) SelectDestinations(ctx context.Context, spec types.RequestSpec, props types.FilterProperties) ([]types.Destination, error) {
	logger := log.WithComponent("scheduler")
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulingLatency)

	hosts := d.Manager.GetAllHostStates()

	filtered, err := d.Manager.GetFilteredHosts(hosts, props, d.FilterNames)
	if err != nil {
		metrics.SelectionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(filtered) == 0 {
		metrics.SelectionsTotal.WithLabelValues("no_valid_host").Inc()
		d.publishFailure(spec)
		return nil, &schederr.NoValidHostError{Requested: spec.NumInstances, Filled: 0}
	}

	chain, err := weighers.NewChain(d.WeigherSpecs)
	if err != nil {
		return nil, err
	}

	pool := filtered
	destinations := make([]types.Destination, 0, spec.NumInstances)

	for i := 0; i < spec.NumInstances; i++ {
		ranked := chain.WeighHosts(pool, props)
		chosen := ranked[0].Host

		chosen.ConsumeFromInstance(spec.InstanceType, spec.ProjectID, "", "", "", props.PciRequests)

		destinations = append(destinations, types.Destination{
			Host:   chosen.Host,
			Node:   chosen.Node,
			Limits: cloneLimits(chosen.Limits),
		})

		// chosen stays in pool: consuming it changes its weight, not its
		// eligibility, so the next slot's re-weigh may rank it first again
		// and stack another instance onto it.
	}

	metrics.SelectionsTotal.WithLabelValues("success").Inc()
	metrics.DestinationsReturnedTotal.Add(float64(len(destinations)))
	logger.Info().Int("count", len(destinations)).Msg("selection completed")
	if d.Events != nil {
		d.Events.Publish(&events.Event{
			Type:    events.EventSelectionCompleted,
			Message: "selection completed",
		})
	}
	return destinations, nil
}

func (d *Driver) publishFailure(spec types.RequestSpec) {
	if d.Events == nil {
		return
	}
	d.Events.Publish(&events.Event{
		Type:    events.EventSelectionFailed,
		Message: "no valid host",
	})
}

func cloneLimits(limits map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(limits))
	for k, v := range limits {
		out[k] = v
	}
	return out
}
