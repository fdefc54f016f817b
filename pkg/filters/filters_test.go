package filters

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/attestation"
	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/inventory"
	"github.com/cuemby/gantt-scheduler/pkg/liveness"
	"github.com/cuemby/gantt-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInventory struct {
	aggregateMetadata map[string]map[string][]string
	instanceTypes     map[string][]types.InstanceType
}

func (f *fakeInventory) ListComputeNodes(ctx context.Context) ([]inventory.ComputeNodeRecord, error) {
	return nil, nil
}

func (f *fakeInventory) AggregateMetadataByHost(ctx context.Context, host string) (map[string][]string, error) {
	return f.aggregateMetadata[host], nil
}

func (f *fakeInventory) InstanceTypesOnHost(ctx context.Context, host string) ([]types.InstanceType, error) {
	return f.instanceTypes[host], nil
}

func (f *fakeInventory) Close() error { return nil }

func hostWithVcpus(host string, total, used int) *hoststate.HostState {
	h := hoststate.New(host, host+"-node")
	h.VcpusTotal = total
	h.VcpusUsed = used
	return h
}

// S1. Simple fit.
func TestCoresFilterS1SimpleFit(t *testing.T) {
	a := hostWithVcpus("A", 4, 0)
	b := hostWithVcpus("B", 2, 2)
	props := types.FilterProperties{InstanceType: types.InstanceType{VCPUs: 2}}
	fctx := &Context{CPUAllocationRatio: 1.0}

	chain, err := NewChain([]string{"Cores"})
	require.NoError(t, err)

	survivors := chain.Apply(context.Background(), fctx, []*hoststate.HostState{a, b}, props)

	require.Len(t, survivors, 1)
	assert.Equal(t, "A", survivors[0].Host)
	assert.Equal(t, float64(4), survivors[0].Limits["vcpu"])
}

// S2. Overcommit.
func TestCoresFilterS2Overcommit(t *testing.T) {
	a := hostWithVcpus("A", 4, 4)
	props := types.FilterProperties{InstanceType: types.InstanceType{VCPUs: 2}}
	fctx := &Context{CPUAllocationRatio: 2.0}

	f, err := New("Cores")
	require.NoError(t, err)

	ok, err := f.HostPasses(context.Background(), fctx, a, props)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(8), a.Limits["vcpu"])
}

func TestCoresFilterZeroVcpusTotalFailsSafe(t *testing.T) {
	a := hostWithVcpus("A", 0, 0)
	f, _ := New("Cores")
	ok, err := f.HostPasses(context.Background(), &Context{CPUAllocationRatio: 1.0}, a, types.FilterProperties{InstanceType: types.InstanceType{VCPUs: 100}})
	require.NoError(t, err)
	assert.True(t, ok)
}

// S4. Extra specs.
func TestAggregateExtraSpecsFilterS4Substring(t *testing.T) {
	inv := &fakeInventory{aggregateMetadata: map[string]map[string][]string{
		"A": {"gpu": {"nvidia"}},
	}}
	props := types.FilterProperties{InstanceType: types.InstanceType{
		ExtraSpecs: map[string]string{"aggregate_instance_extra_specs:gpu": "<in> nv"},
	}}
	f, _ := New("AggregateExtraSpecs")
	ok, err := f.HostPasses(context.Background(), &Context{Inventory: inv}, hoststate.New("A", "A-node"), props)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAggregateExtraSpecsFilterRejectsUnscopedMismatch(t *testing.T) {
	inv := &fakeInventory{aggregateMetadata: map[string]map[string][]string{
		"A": {"flavor-class": {"general"}},
	}}
	props := types.FilterProperties{InstanceType: types.InstanceType{
		ExtraSpecs: map[string]string{"flavor-class": "gpu"},
	}}
	f, _ := New("AggregateExtraSpecs")
	ok, err := f.HostPasses(context.Background(), &Context{Inventory: inv}, hoststate.New("A", "A-node"), props)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAggregateExtraSpecsFilterIgnoresOtherScopes(t *testing.T) {
	inv := &fakeInventory{}
	props := types.FilterProperties{InstanceType: types.InstanceType{
		ExtraSpecs: map[string]string{"capabilities:cpu_info": "model=x"},
	}}
	f, _ := New("AggregateExtraSpecs")
	ok, err := f.HostPasses(context.Background(), &Context{Inventory: inv}, hoststate.New("A", "A-node"), props)
	require.NoError(t, err)
	assert.True(t, ok, "specs outside the aggregate scope are ignored")
}

func TestActiveComputeFilterDisabledService(t *testing.T) {
	h := hoststate.New("A", "A-node")
	h.Service.Disabled = true
	f, _ := New("ActiveCompute")
	ok, _ := f.HostPasses(context.Background(), &Context{}, h, types.FilterProperties{})
	assert.False(t, ok)
}

func TestActiveComputeFilterLivenessOracle(t *testing.T) {
	h := hoststate.New("A", "A-node")
	h.Service.Host = "A"
	h.Service.Binary = "compute"
	oracle := liveness.NewHeartbeatOracle(time.Minute)
	oracle.Record("A/compute", time.Now())

	f, _ := New("ActiveCompute")
	ok, _ := f.HostPasses(context.Background(), &Context{Liveness: oracle}, h, types.FilterProperties{})
	assert.True(t, ok)
}

func TestImagePropertiesFilter(t *testing.T) {
	h := hoststate.New("A", "A-node")
	h.SupportedInstances = []types.SupportedInstance{{Architecture: "x86_64", HypervisorType: "kvm", VMMode: "hvm"}}

	f, _ := New("ImageProperties")

	ok, err := f.HostPasses(context.Background(), &Context{}, h, types.FilterProperties{
		RequestSpec: types.RequestSpec{Image: types.ImageProperties{Architecture: "x86_64"}},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.HostPasses(context.Background(), &Context{}, h, types.FilterProperties{
		RequestSpec: types.RequestSpec{Image: types.ImageProperties{Architecture: "arm64"}},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImagePropertiesFilterNoPropertiesAlwaysPasses(t *testing.T) {
	h := hoststate.New("A", "A-node")
	f, _ := New("ImageProperties")
	ok, err := f.HostPasses(context.Background(), &Context{}, h, types.FilterProperties{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPciPassthroughFilter(t *testing.T) {
	h := hoststate.New("A", "A-node")
	h.PciStats = hoststate.NewPciDeviceStats([]hoststate.PciDevicePool{{VendorID: "8086", ProductID: "1520", Count: 1}})

	f, _ := New("PciPassthrough")
	props := types.FilterProperties{PciRequests: []types.PciRequest{
		{Count: 1, Spec: []types.PciDeviceSpec{{VendorID: "8086", ProductID: "1520"}}},
	}}
	ok, err := f.HostPasses(context.Background(), &Context{}, h, props)
	require.NoError(t, err)
	assert.True(t, ok)

	props.PciRequests[0].Count = 2
	ok, err = f.HostPasses(context.Background(), &Context{}, h, props)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTypeAffinityFilter(t *testing.T) {
	inv := &fakeInventory{instanceTypes: map[string][]types.InstanceType{
		"A": {{ID: "small"}},
	}}
	f, _ := New("TypeAffinity")

	ok, err := f.HostPasses(context.Background(), &Context{Inventory: inv}, hoststate.New("A", "A-node"),
		types.FilterProperties{InstanceType: types.InstanceType{ID: "small"}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.HostPasses(context.Background(), &Context{Inventory: inv}, hoststate.New("A", "A-node"),
		types.FilterProperties{InstanceType: types.InstanceType{ID: "large"}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAggregateTypeAffinityFilter(t *testing.T) {
	inv := &fakeInventory{aggregateMetadata: map[string]map[string][]string{
		"A": {"instance_type": {"gpu-large"}},
	}}
	f, _ := New("AggregateTypeAffinity")

	ok, _ := f.HostPasses(context.Background(), &Context{Inventory: inv}, hoststate.New("A", "A-node"),
		types.FilterProperties{InstanceType: types.InstanceType{Name: "gpu-large"}})
	assert.True(t, ok)

	ok, _ = f.HostPasses(context.Background(), &Context{Inventory: inv}, hoststate.New("A", "A-node"),
		types.FilterProperties{InstanceType: types.InstanceType{Name: "general"}})
	assert.False(t, ok)
}

// S3 (force) is handled by pkg/hostmanager's force/ignore pre-processing,
// not by a filter, and has no test here; S5 (trust) is covered in
// pkg/attestation and here for the filter side of the contract.
func TestTrustedFilterNoRequirementPasses(t *testing.T) {
	f, _ := New("Trusted")
	ok, err := f.HostPasses(context.Background(), &Context{}, hoststate.New("A", "A-node"), types.FilterProperties{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTrustedFilterDefersToAttestationCache(t *testing.T) {
	svc := staticAttestationService{claims: []attestation.Claim{
		{Host: "A", TrustLvl: attestation.Trusted, Vtime: time.Now().Format(time.RFC3339)},
	}}
	cache := attestation.NewCache(svc, time.Minute)

	f, _ := New("Trusted")
	ok, err := f.HostPasses(context.Background(), &Context{Attestation: cache}, hoststate.New("A", "A-node"),
		types.FilterProperties{InstanceType: types.InstanceType{ExtraSpecs: map[string]string{"trust:trusted_host": "trusted"}}})
	require.NoError(t, err)
	assert.True(t, ok)
}

type staticAttestationService struct {
	claims []attestation.Claim
}

func (s staticAttestationService) Poll(ctx context.Context, hosts []string) ([]attestation.Claim, error) {
	return s.claims, nil
}

func TestChainSkipsRemainingFiltersOnceEmpty(t *testing.T) {
	a := hostWithVcpus("A", 1, 1)
	chain, err := NewChain([]string{"Cores", "ImageProperties"})
	require.NoError(t, err)
	survivors := chain.Apply(context.Background(), &Context{CPUAllocationRatio: 1.0}, []*hoststate.HostState{a},
		types.FilterProperties{InstanceType: types.InstanceType{VCPUs: 1}})
	assert.Empty(t, survivors)
}

func TestUnknownFilterNameReturnsError(t *testing.T) {
	_, err := NewChain([]string{"DoesNotExist"})
	require.Error(t, err)
}

// S6. No valid host: RAM filter eliminates the only candidate.
func TestRamFilterS6Exhausted(t *testing.T) {
	h := hoststate.New("A", "A-node")
	h.TotalUsableRamMB = 8192
	h.FreeRamMB = 100

	f, _ := New("Ram")
	ok, err := f.HostPasses(context.Background(), &Context{RAMAllocationRatio: 1.0}, h,
		types.FilterProperties{InstanceType: types.InstanceType{MemoryMB: 8192}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRamFilterZeroTotalFailsSafe(t *testing.T) {
	h := hoststate.New("A", "A-node")
	f, _ := New("Ram")
	ok, err := f.HostPasses(context.Background(), &Context{RAMAllocationRatio: 1.0}, h,
		types.FilterProperties{InstanceType: types.InstanceType{MemoryMB: 8192}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRamFilterPassesWithinAllocation(t *testing.T) {
	h := hoststate.New("A", "A-node")
	h.TotalUsableRamMB = 4096
	h.FreeRamMB = 4096

	f, _ := New("Ram")
	ok, err := f.HostPasses(context.Background(), &Context{RAMAllocationRatio: 1.0}, h,
		types.FilterProperties{InstanceType: types.InstanceType{MemoryMB: 2048}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(4096), h.Limits["memory_mb"])
}
