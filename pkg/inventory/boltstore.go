package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/gantt-scheduler/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketComputeNodes = []byte("compute_nodes")
	bucketAggregates   = []byte("aggregates")
)

// BoltStore is a local, zero-dependency implementation of Store backed
// by BoltDB: a standalone deployment's inventory, and the fixture store
// the scheduler's own integration tests seed directly.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a BoltDB file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "inventory.db")
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("inventory: open %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketComputeNodes, bucketAggregates} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("inventory: create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// boltComputeNodeRecord is ComputeNodeRecord plus an optional path to a
// qcow2 disk image backing this fixture node, whose allocated size
// overrides DiskAvailableLeast on read.
type boltComputeNodeRecord struct {
	ComputeNodeRecord
	DiskImagePath string `json:"disk_image_path,omitempty"`
}

// UpsertComputeNode stores or replaces a compute node record. If
// diskImagePath names a qcow2 image, DiskAvailableLeast is recomputed
// from that image's actual allocated size (rather than the record's own
// DiskAvailableLeast field) every time the record is read back, the way
// a real hypervisor's periodic usage report would.
func (s *BoltStore) UpsertComputeNode(rec ComputeNodeRecord, diskImagePath string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComputeNodes)
		data, err := json.Marshal(boltComputeNodeRecord{ComputeNodeRecord: rec, DiskImagePath: diskImagePath})
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.Host+"/"+rec.HypervisorHostname), data)
	})
}

// DeleteComputeNode removes a fixture node.
func (s *BoltStore) DeleteComputeNode(host, hypervisorHostname string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComputeNodes)
		return b.Delete([]byte(host + "/" + hypervisorHostname))
	})
}

// ListComputeNodes implements Store.
func (s *BoltStore) ListComputeNodes(ctx context.Context) ([]ComputeNodeRecord, error) {
	var out []ComputeNodeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComputeNodes)
		return b.ForEach(func(_, v []byte) error {
			var rec boltComputeNodeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.DiskImagePath != "" {
				if allocatedGB, err := qcow2AllocatedGB(rec.DiskImagePath); err == nil {
					rec.DiskAvailableLeast = &allocatedGB
				}
			}
			out = append(out, rec.ComputeNodeRecord)
			return nil
		})
	})
	return out, err
}

// UpsertAggregate stores the metadata for a host aggregate, keyed by
// UUID, for AggregateMetadataByHost to fold over.
func (s *BoltStore) UpsertAggregate(agg types.AggregateRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAggregates)
		data, err := json.Marshal(agg)
		if err != nil {
			return err
		}
		return b.Put([]byte(agg.UUID), data)
	})
}

// AggregateMetadataByHost implements Store: the union, across every
// aggregate containing host, of that aggregate's metadata values.
func (s *BoltStore) AggregateMetadataByHost(ctx context.Context, host string) (map[string][]string, error) {
	union := make(map[string][]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAggregates)
		return b.ForEach(func(_, v []byte) error {
			var agg types.AggregateRecord
			if err := json.Unmarshal(v, &agg); err != nil {
				return err
			}
			if !containsHost(agg.Hosts, host) {
				return nil
			}
			for k, values := range agg.Metadata {
				union[k] = append(union[k], values...)
			}
			return nil
		})
	})
	return union, err
}

func containsHost(hosts []string, host string) bool {
	for _, h := range hosts {
		if h == host {
			return true
		}
	}
	return false
}

// InstanceTypesOnHost implements Store. The BoltDB fixture store has no
// running-instance ledger of its own (that lives with the compute
// service in a real deployment), so it always reports none; type
// affinity filters treat an empty result as "no conflict" by design.
func (s *BoltStore) InstanceTypesOnHost(ctx context.Context, host string) ([]types.InstanceType, error) {
	return nil, nil
}
