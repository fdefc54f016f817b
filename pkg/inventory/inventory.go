// Package inventory defines the read-only query surface the host manager
// refreshes from, and the record shapes compute-node and aggregate
// queries return. The interface has two implementations: a gRPC client
// for production and a BoltDB-backed store for standalone/dev use and
// for the scheduler's own integration tests.
package inventory

import (
	"context"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/types"
)

// PciPool is one (vendor, product) passthrough device pool reported by
// the PCI resource tracker on a compute node.
type PciPool struct {
	VendorID  string
	ProductID string
	Count     int
}

// ComputeNodeRecord is one row of the inventory store's compute_nodes
// view: a hypervisor's resource totals, current consumption, and the
// service record that owns it.
type ComputeNodeRecord struct {
	Host               string
	HypervisorHostname string
	MemoryMB           int64
	FreeRamMB          int64
	LocalGB            int64
	FreeDiskGB         int64
	DiskAvailableLeast *int64 // nullable; preferred over FreeDiskGB when present
	Vcpus              int
	VcpusUsed          int
	CurrentWorkload    int
	RunningVMs         int
	HypervisorType     string
	HypervisorVersion  int64
	CPUInfo            string
	Stats              map[string]string
	Metrics            []types.Metric
	SupportedInstances []types.SupportedInstance
	PciPools           []PciPool
	UpdatedAt          time.Time
	Service            *types.ServiceRecord // nil if the node has no bound service
}

// Store is the read-only inventory query interface. Production code
// talks to it over gRPC; tests and standalone deployments can use the
// BoltDB-backed implementation in this package.
type Store interface {
	// ListComputeNodes returns every known compute-node record.
	ListComputeNodes(ctx context.Context) ([]ComputeNodeRecord, error)

	// AggregateMetadataByHost returns the union of aggregate metadata for
	// every aggregate that contains host.
	AggregateMetadataByHost(ctx context.Context, host string) (map[string][]string, error)

	// InstanceTypesOnHost returns the distinct instance-type IDs and
	// names currently running on host, for the type-affinity filters.
	InstanceTypesOnHost(ctx context.Context, host string) ([]types.InstanceType, error)

	Close() error
}
