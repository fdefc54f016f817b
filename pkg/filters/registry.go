package filters

import (
	"sort"
	"sync"

	"github.com/cuemby/gantt-scheduler/pkg/schederr"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Filter)
)

// Register adds a filter constructor to the registry under name. Called
// from concrete filters' init() functions; panics on duplicate
// registration since that can only happen from a programming error.
func Register(name string, constructor func() Filter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic("filters: duplicate registration for " + name)
	}
	registry[name] = constructor
}

// New constructs a fresh Filter instance for name, or ErrUnknownFilter
// if name is not registered.
func New(name string) (Filter, error) {
	registryMu.RLock()
	constructor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &schederr.UnknownFilterError{Name: name}
	}
	return constructor(), nil
}

// Names returns every registered filter name, sorted, for config
// validation and introspection.
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

// IsRegistered reports whether name is a known filter.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
