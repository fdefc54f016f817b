package weighers

import (
	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

func init() {
	Register("RAMWeigher", func() Weigher { return RAMWeigher{} })
}

// RAMWeigher scores hosts by free RAM, so the default positive
// multiplier spreads load toward hosts with more headroom.
type RAMWeigher struct{}

func (RAMWeigher) Name() string { return "RAMWeigher" }

func (RAMWeigher) WeighObjects(hosts []*hoststate.HostState, _ types.FilterProperties) []float64 {
	scores := make([]float64, len(hosts))
	for i, h := range hosts {
		scores[i] = float64(h.FreeRamMB)
	}
	return scores
}
