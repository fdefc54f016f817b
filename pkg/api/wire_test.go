package api

import (
	"testing"

	"github.com/cuemby/gantt-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestSelectDestinationsRequestToSpecAndProps(t *testing.T) {
	req := &SelectDestinationsRequest{
		Envelope:     Envelope{Version: minSupportedVersion, Context: WireContext{ProjectID: "proj-1"}},
		InstanceType: WireInstanceType{VCPUs: 2, MemoryMB: 2048},
		Image:        WireImageProperties{Architecture: "x86_64"},
		NumInstances: 3,
		ProjectID:    "proj-1",
		ForceHosts:   []string{"host-a"},
	}

	spec, props := req.toSpecAndProps()

	assert.Equal(t, 3, spec.NumInstances)
	assert.Equal(t, "proj-1", spec.ProjectID)
	assert.Equal(t, 2, spec.InstanceType.VCPUs)
	assert.Equal(t, "x86_64", spec.Image.Architecture)
	assert.Equal(t, []string{"host-a"}, props.ForceHosts)
	assert.Equal(t, "proj-1", props.Context.ProjectID)
}

func TestFromDomainDestinations(t *testing.T) {
	wire := fromDomainDestinations([]types.Destination{
		{Host: "a", Node: "a-node", Limits: map[string]float64{"vcpu": 4}},
	})
	assert := assert.New(t)
	assert.Len(wire, 1)
	assert.Equal("a", wire[0].Host)
	assert.Equal(4.0, wire[0].Limits["vcpu"])
}

func TestVersionSupported(t *testing.T) {
	cases := []struct {
		version string
		want    bool
	}{
		{"select_destinations introduced", true},
		{"", false},
		{"some future version never seen", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, versionSupported(tc.version), tc.version)
	}
}
