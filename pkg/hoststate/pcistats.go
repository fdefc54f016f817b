package hoststate

// PciDevicePool is a count of identical passthrough devices available on
// a host, as reported by the PCI resource tracker.
type PciDevicePool struct {
	VendorID  string
	ProductID string
	Count     int
}

func poolKey(vendorID, productID string) string {
	return vendorID + ":" + productID
}

// PciDeviceStats summarizes a host's available PCI passthrough devices by
// (vendor, product) and supports atomically reserving a batch of
// requests against them.
type PciDeviceStats struct {
	pools map[string]int
}

// NewPciDeviceStats builds stats from the pools reported by a compute
// node's inventory record.
func NewPciDeviceStats(pools []PciDevicePool) *PciDeviceStats {
	s := &PciDeviceStats{pools: make(map[string]int, len(pools))}
	for _, p := range pools {
		s.pools[poolKey(p.VendorID, p.ProductID)] += p.Count
	}
	return s
}

// PciRequest asks for Count devices matching any of Spec (an alias may
// resolve to several acceptable vendor/product pairs).
type PciRequest struct {
	Alias string
	Count int
	Spec  []PciDeviceSpec
}

// PciDeviceSpec identifies a device pool by vendor/product ID.
type PciDeviceSpec struct {
	VendorID  string
	ProductID string
}

// SupportRequests reports whether every request in reqs can be satisfied
// simultaneously from the current pools, without reserving anything.
func (s *PciDeviceStats) SupportRequests(reqs []PciRequest) bool {
	if s == nil {
		return len(reqs) == 0
	}
	trial := s.clonePools()
	for _, req := range reqs {
		if !reserve(trial, req) {
			return false
		}
	}
	return true
}

// ApplyRequests attempts to reserve every request in reqs atomically: if
// any single request cannot be satisfied, no pool is mutated.
func (s *PciDeviceStats) ApplyRequests(reqs []PciRequest) bool {
	if s == nil {
		return len(reqs) == 0
	}
	trial := s.clonePools()
	for _, req := range reqs {
		if !reserve(trial, req) {
			return false
		}
	}
	s.pools = trial
	return true
}

func reserve(pools map[string]int, req PciRequest) bool {
	remaining := req.Count
	for _, spec := range req.Spec {
		key := poolKey(spec.VendorID, spec.ProductID)
		available := pools[key]
		if available <= 0 {
			continue
		}
		take := available
		if take > remaining {
			take = remaining
		}
		pools[key] = available - take
		remaining -= take
		if remaining == 0 {
			return true
		}
	}
	return remaining == 0
}

func (s *PciDeviceStats) clonePools() map[string]int {
	clone := make(map[string]int, len(s.pools))
	for k, v := range s.pools {
		clone[k] = v
	}
	return clone
}

// Clone returns a deep copy so a request-scoped pipeline can reserve
// devices without mutating the cached host state.
func (s *PciDeviceStats) Clone() *PciDeviceStats {
	if s == nil {
		return nil
	}
	return &PciDeviceStats{pools: s.clonePools()}
}
