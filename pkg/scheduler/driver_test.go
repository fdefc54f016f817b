package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/events"
	"github.com/cuemby/gantt-scheduler/pkg/hostmanager"
	"github.com/cuemby/gantt-scheduler/pkg/inventory"
	"github.com/cuemby/gantt-scheduler/pkg/schederr"
	"github.com/cuemby/gantt-scheduler/pkg/types"
	"github.com/cuemby/gantt-scheduler/pkg/weighers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records []inventory.ComputeNodeRecord
}

func (f *fakeStore) ListComputeNodes(ctx context.Context) ([]inventory.ComputeNodeRecord, error) {
	return f.records, nil
}
func (f *fakeStore) AggregateMetadataByHost(ctx context.Context, host string) (map[string][]string, error) {
	return nil, nil
}
func (f *fakeStore) InstanceTypesOnHost(ctx context.Context, host string) ([]types.InstanceType, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

func newTestManager(records []inventory.ComputeNodeRecord) *hostmanager.Manager {
	m := hostmanager.New(&fakeStore{records: records}, nil, nil, 1.0, 1.0)
	_ = m.Refresh(context.Background())
	return m
}

func computeRecord(host string, memoryMB, freeRamMB int64, vcpus, vcpusUsed int) inventory.ComputeNodeRecord {
	return inventory.ComputeNodeRecord{
		Host:               host,
		HypervisorHostname: host + "-node",
		MemoryMB:           memoryMB,
		FreeRamMB:          freeRamMB,
		Vcpus:              vcpus,
		VcpusUsed:          vcpusUsed,
		UpdatedAt:          time.Now(),
		Service:            &types.ServiceRecord{Host: host, Binary: "compute"},
	}
}

func TestSelectDestinationsSuccess(t *testing.T) {
	manager := newTestManager([]inventory.ComputeNodeRecord{
		computeRecord("A", 8192, 8192, 4, 0),
	})
	driver := New(manager, []string{"Ram", "Cores"}, []weighers.Spec{{Name: "RAMWeigher"}}, nil)

	destinations, err := driver.SelectDestinations(context.Background(), types.RequestSpec{
		InstanceType: types.InstanceType{MemoryMB: 2048, VCPUs: 2},
		NumInstances: 1,
	}, types.FilterProperties{InstanceType: types.InstanceType{MemoryMB: 2048, VCPUs: 2}})

	require.NoError(t, err)
	require.Len(t, destinations, 1)
	assert.Equal(t, "A", destinations[0].Host)
}

// S6. No valid host.
func TestSelectDestinationsS6NoValidHost(t *testing.T) {
	manager := newTestManager([]inventory.ComputeNodeRecord{
		computeRecord("A", 8192, 100, 4, 0),
	})
	driver := New(manager, []string{"Ram"}, []weighers.Spec{{Name: "RAMWeigher"}}, nil)

	_, err := driver.SelectDestinations(context.Background(), types.RequestSpec{
		InstanceType: types.InstanceType{MemoryMB: 8192},
		NumInstances: 1,
	}, types.FilterProperties{InstanceType: types.InstanceType{MemoryMB: 8192}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, schederr.ErrNoValidHost))
}

// A host with enough capacity for multiple instances should receive more
// than one destination in a single request: consuming it only changes its
// weight for the next slot, it never drops out of the pool.
func TestSelectDestinationsStacksInstancesOnOneHost(t *testing.T) {
	manager := newTestManager([]inventory.ComputeNodeRecord{
		computeRecord("A", 4096, 4096, 4, 0),
	})
	driver := New(manager, nil, []weighers.Spec{{Name: "RAMWeigher"}}, nil)

	destinations, err := driver.SelectDestinations(context.Background(), types.RequestSpec{
		InstanceType: types.InstanceType{MemoryMB: 1024},
		NumInstances: 3,
	}, types.FilterProperties{})

	require.NoError(t, err)
	require.Len(t, destinations, 3)
	for _, dest := range destinations {
		assert.Equal(t, "A", dest.Host)
	}
}

func TestSelectDestinationsPublishesEvents(t *testing.T) {
	manager := newTestManager([]inventory.ComputeNodeRecord{
		computeRecord("A", 4096, 4096, 4, 0),
	})
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	driver := New(manager, nil, []weighers.Spec{{Name: "RAMWeigher"}}, broker)
	_, err := driver.SelectDestinations(context.Background(), types.RequestSpec{
		InstanceType: types.InstanceType{MemoryMB: 1024},
		NumInstances: 1,
	}, types.FilterProperties{})
	require.NoError(t, err)

	select {
	case evt := <-sub:
		assert.Equal(t, events.EventSelectionCompleted, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a selection.completed event")
	}
}
