// Package hostmanager owns the host-state cache: it refreshes
// host_state_map from the inventory query interface, tracks
// service_states from heartbeats, and applies the filter/weigher chains
// with force/ignore pre-processing ahead of the chain.
package hostmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/attestation"
	"github.com/cuemby/gantt-scheduler/pkg/events"
	"github.com/cuemby/gantt-scheduler/pkg/filters"
	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/inventory"
	"github.com/cuemby/gantt-scheduler/pkg/liveness"
	"github.com/cuemby/gantt-scheduler/pkg/log"
	"github.com/cuemby/gantt-scheduler/pkg/metrics"
	"github.com/cuemby/gantt-scheduler/pkg/schederr"
	"github.com/cuemby/gantt-scheduler/pkg/types"
	"github.com/cuemby/gantt-scheduler/pkg/weighers"
)

type hostKey struct {
	host string
	node string
}

// Manager is the host manager described in the spec: a single
// sync.RWMutex protects both host_state_map and service_states; readers
// always receive cloned HostState values.
type Manager struct {
	mu             sync.RWMutex
	hostStateMap   map[hostKey]*hoststate.HostState
	serviceStates  map[hostKey]types.Capabilities

	Inventory   inventory.Store
	Liveness    liveness.Oracle
	Attestation *attestation.Cache
	Events      *events.Broker

	CPUAllocationRatio float64
	RAMAllocationRatio float64
}

// New constructs an empty Manager. Call Refresh before the first
// request to populate host_state_map.
func New(store inventory.Store, liv liveness.Oracle, attest *attestation.Cache, cpuAllocationRatio, ramAllocationRatio float64) *Manager {
	return &Manager{
		hostStateMap:       make(map[hostKey]*hoststate.HostState),
		serviceStates:      make(map[hostKey]types.Capabilities),
		Inventory:          store,
		Liveness:           liv,
		Attestation:        attest,
		CPUAllocationRatio: cpuAllocationRatio,
		RAMAllocationRatio: ramAllocationRatio,
	}
}

// UpdateServiceCapabilities accepts a capability heartbeat. Only the
// "compute" service is tracked; every other service name is ignored.
func (m *Manager) UpdateServiceCapabilities(serviceName, host string, caps types.Capabilities) {
	if serviceName != "compute" {
		return
	}
	caps.ReceivedAt = time.Now()

	key := hostKey{host: host, node: caps.HypervisorHostname}
	m.mu.Lock()
	m.serviceStates[key] = caps
	// Key the oracle off the host's actual service binary, not the
	// heartbeat's generic service name, so this lines up with both
	// Refresh's seeding and ActiveComputeFilter's lookup.
	binary := serviceName
	if hs, ok := m.hostStateMap[key]; ok && hs.Service.Binary != "" {
		binary = hs.Service.Binary
	}
	m.mu.Unlock()

	if m.Liveness != nil {
		if oracle, ok := m.Liveness.(*liveness.HeartbeatOracle); ok {
			oracle.Record(host+"/"+binary, caps.ReceivedAt)
		}
	}
}

// Refresh pulls every compute-node record from the inventory store,
// upserts a HostState per (host, node) pair with a bound service, and
// evicts any (host, node) key not seen in this refresh.
func (m *Manager) Refresh(ctx context.Context) error {
	logger := log.WithComponent("hostmanager")
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.InventoryRefreshDuration)

	records, err := m.Inventory.ListComputeNodes(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", schederr.ErrInventoryUnavailable, err)
	}

	seen := make(map[hostKey]bool, len(records))

	m.mu.Lock()
	for _, rec := range records {
		if rec.Service == nil {
			logger.Warn().Str("host", rec.Host).Msg("compute node has no bound service, skipping")
			continue
		}
		key := hostKey{host: rec.Host, node: rec.HypervisorHostname}
		seen[key] = true

		hs, ok := m.hostStateMap[key]
		if !ok {
			hs = hoststate.New(rec.Host, rec.HypervisorHostname)
			m.hostStateMap[key] = hs
		}

		caps := types.Capabilities{
			HypervisorHostname: rec.HypervisorHostname,
			HypervisorType:     rec.HypervisorType,
			HypervisorVersion:  rec.HypervisorVersion,
			CPUInfo:            rec.CPUInfo,
			SupportedInstances: rec.SupportedInstances,
		}
		if cached, ok := m.serviceStates[key]; ok {
			caps.ReceivedAt = cached.ReceivedAt
		}
		hs.UpdateCapabilities(caps, *rec.Service)
		hs.UpdateFromComputeNode(rec)

		// Inventory polling is this service's only heartbeat channel in
		// practice (nothing calls UpdateServiceCapabilities outside
		// tests), so seed liveness straight from the service record the
		// inventory already reports, the way Nova's "db" servicegroup
		// driver derives liveness from the service table's timestamp.
		if m.Liveness != nil {
			if oracle, ok := m.Liveness.(*liveness.HeartbeatOracle); ok {
				oracle.Record(rec.Service.Host+"/"+rec.Service.Binary, rec.Service.LastHeartbeat)
			}
		}
	}

	for key, hs := range m.hostStateMap {
		if !seen[key] {
			delete(m.hostStateMap, key)
			if m.Liveness != nil {
				if oracle, ok := m.Liveness.(*liveness.HeartbeatOracle); ok {
					oracle.Evict(hs.Service.Host + "/" + hs.Service.Binary)
				}
			}
			if m.Events != nil {
				m.Events.Publish(&events.Event{
					Type:     events.EventHostEvicted,
					Message:  "host evicted from cache",
					Metadata: map[string]string{"host": key.host, "node": key.node},
				})
			}
		}
	}
	m.mu.Unlock()

	metrics.HostCacheSize.Set(float64(len(seen)))
	return nil
}

// GetAllHostStates returns a clone of every cached HostState.
func (m *Manager) GetAllHostStates() []*hoststate.HostState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*hoststate.HostState, 0, len(m.hostStateMap))
	for _, hs := range m.hostStateMap {
		out = append(out, hs.Clone())
	}
	return out
}

// GetFilteredHosts resolves filterNames against the filter registry,
// applies force/ignore pre-processing in spec order, and — unless a
// force list caused an early return — runs the resulting chain.
func (m *Manager) GetFilteredHosts(hosts []*hoststate.HostState, props types.FilterProperties, filterNames []string) ([]*hoststate.HostState, error) {
	chain, err := filters.NewChain(filterNames)
	if err != nil {
		return nil, err
	}

	survivors, skipChain := applyForceIgnore(hosts, props)
	if skipChain {
		return survivors, nil
	}

	fctx := &filters.Context{
		Inventory:          m.Inventory,
		Liveness:           m.Liveness,
		Attestation:        m.Attestation,
		CPUAllocationRatio: m.CPUAllocationRatio,
		RAMAllocationRatio: m.RAMAllocationRatio,
	}
	return chain.Apply(context.Background(), fctx, survivors, props), nil
}

// applyForceIgnore implements the four force/ignore rules from §4.1, in
// order. skipChain is true when a force list was supplied and left
// survivors, in which case the filter chain must not run at all.
func applyForceIgnore(hosts []*hoststate.HostState, props types.FilterProperties) (survivors []*hoststate.HostState, skipChain bool) {
	survivors = hosts

	if len(props.IgnoreHosts) > 0 {
		ignore := toSet(props.IgnoreHosts)
		survivors = filterHosts(survivors, func(h *hoststate.HostState) bool { return !ignore[h.Host] })
		if len(survivors) == 0 {
			return survivors, false
		}
	}

	forced := false
	if len(props.ForceHosts) > 0 {
		forced = true
		allow := toSet(props.ForceHosts)
		survivors = filterHosts(survivors, func(h *hoststate.HostState) bool { return allow[h.Host] })
	}
	if len(props.ForceNodes) > 0 {
		forced = true
		allow := toSet(props.ForceNodes)
		survivors = filterHosts(survivors, func(h *hoststate.HostState) bool { return allow[h.Node] })
	}

	if forced && len(survivors) > 0 {
		return survivors, true
	}
	return survivors, false
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func filterHosts(hosts []*hoststate.HostState, keep func(*hoststate.HostState) bool) []*hoststate.HostState {
	out := make([]*hoststate.HostState, 0, len(hosts))
	for _, h := range hosts {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

// GetWeighedHosts scores and ranks hosts with chain, descending.
func (m *Manager) GetWeighedHosts(chain *weighers.Chain, hosts []*hoststate.HostState, props types.FilterProperties) []weighers.WeighedHost {
	return chain.WeighHosts(hosts, props)
}
