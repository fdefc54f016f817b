package weighers

import (
	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

func init() {
	Register("DiskWeigher", func() Weigher { return DiskWeigher{} })
}

// DiskWeigher scores hosts by free disk, in megabytes.
type DiskWeigher struct{}

func (DiskWeigher) Name() string { return "DiskWeigher" }

func (DiskWeigher) WeighObjects(hosts []*hoststate.HostState, _ types.FilterProperties) []float64 {
	scores := make([]float64, len(hosts))
	for i, h := range hosts {
		scores[i] = float64(h.FreeDiskMB)
	}
	return scores
}
