// Package weighers implements the weigher contract, registry, and chain:
// pluggable scoring functions over filtered hosts, combined by
// normalized weighted sum into a single ranking.
package weighers

import (
	"sort"
	"sync"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/metrics"
	"github.com/cuemby/gantt-scheduler/pkg/schederr"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

// Weigher produces one raw score per host in the order given. Scores
// need not be normalized; the chain normalizes them.
type Weigher interface {
	Name() string
	WeighObjects(hosts []*hoststate.HostState, props types.FilterProperties) []float64
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Weigher)
)

// Register adds a weigher constructor under name.
func Register(name string, constructor func() Weigher) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic("weighers: duplicate registration for " + name)
	}
	registry[name] = constructor
}

// New constructs a fresh Weigher for name, or ErrUnknownWeigher.
func New(name string) (Weigher, error) {
	registryMu.RLock()
	constructor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &schederr.UnknownWeigherError{Name: name}
	}
	return constructor(), nil
}

// Names returns every registered weigher name, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WeighedHost pairs a host with its final, combined weight.
type WeighedHost struct {
	Host   *hoststate.HostState
	Weight float64
}

// Spec names a weigher and its configured multiplier.
type Spec struct {
	Name       string
	Multiplier float64
}

// Chain is an ordered, resolved set of weighers with their multipliers.
type Chain struct {
	entries []chainEntry
}

type chainEntry struct {
	weigher    Weigher
	multiplier float64
}

// NewChain resolves specs against the registry, defaulting an
// unspecified multiplier to 1.0.
func NewChain(specs []Spec) (*Chain, error) {
	entries := make([]chainEntry, 0, len(specs))
	for _, s := range specs {
		w, err := New(s.Name)
		if err != nil {
			return nil, err
		}
		multiplier := s.Multiplier
		if multiplier == 0 {
			multiplier = 1.0
		}
		entries = append(entries, chainEntry{weigher: w, multiplier: multiplier})
	}
	return &Chain{entries: entries}, nil
}

// WeighHosts scores hosts with every weigher in the chain, normalizes
// each weigher's raw scores to [0,1] (min->0, max->1; all-equal->0),
// multiplies by that weigher's multiplier, sums per host, and returns
// hosts sorted by descending total weight. Ties keep the input's
// relative order (stable sort).
func (c *Chain) WeighHosts(hosts []*hoststate.HostState, props types.FilterProperties) []WeighedHost {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.WeigherChainDuration)

	totals := make([]float64, len(hosts))

	for _, entry := range c.entries {
		raw := entry.weigher.WeighObjects(hosts, props)
		normalized := normalize(raw)
		for i, v := range normalized {
			totals[i] += v * entry.multiplier
		}
	}

	weighed := make([]WeighedHost, len(hosts))
	for i, h := range hosts {
		weighed[i] = WeighedHost{Host: h, Weight: totals[i]}
	}
	sort.SliceStable(weighed, func(i, j int) bool {
		return weighed[i].Weight > weighed[j].Weight
	})
	return weighed
}

func normalize(raw []float64) []float64 {
	if len(raw) == 0 {
		return raw
	}
	min, max := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := make([]float64, len(raw))
	if max == min {
		return out // all zero, not NaN
	}
	span := max - min
	for i, v := range raw {
		out[i] = (v - min) / span
	}
	return out
}
