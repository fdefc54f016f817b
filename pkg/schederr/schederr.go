// Package schederr defines the sentinel errors surfaced by the placement
// pipeline, wrapped with enough context to log and to map onto transport
// status codes without string matching.
package schederr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFilter is returned when a request (or config) names a
	// filter that is not registered.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrUnknownWeigher is returned when a request (or config) names a
	// weigher that is not registered.
	ErrUnknownWeigher = errors.New("unknown weigher")

	// ErrNoValidHost is returned when no host survives filtering, or the
	// filtered/weighed pool is exhausted before every requested instance
	// slot is filled.
	ErrNoValidHost = errors.New("no valid host")

	// ErrInventoryUnavailable is returned when the inventory query
	// interface fails to serve a refresh.
	ErrInventoryUnavailable = errors.New("inventory unavailable")

	// ErrAttestationUnavailable names the condition in which the
	// attestation service cannot be reached to refresh a stale entry.
	// The attestation cache does not return it: on a failed poll it
	// leaves the affected hosts at trust level "unknown" and the request
	// continues.
	ErrAttestationUnavailable = errors.New("attestation service unavailable")

	// ErrNotSupported is returned for legacy RPC methods when the
	// deployment is configured to reject them.
	ErrNotSupported = errors.New("method not supported")
)

// UnknownFilterError names the offending filter.
type UnknownFilterError struct {
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q", e.Name)
}

func (e *UnknownFilterError) Unwrap() error { return ErrUnknownFilter }

// UnknownWeigherError names the offending weigher.
type UnknownWeigherError struct {
	Name string
}

func (e *UnknownWeigherError) Error() string {
	return fmt.Sprintf("unknown weigher %q", e.Name)
}

func (e *UnknownWeigherError) Unwrap() error { return ErrUnknownWeigher }

// NoValidHostError optionally carries the number of slots that could not
// be filled.
type NoValidHostError struct {
	Requested int
	Filled    int
}

func (e *NoValidHostError) Error() string {
	if e.Requested > 0 {
		return fmt.Sprintf("no valid host: filled %d of %d requested instances", e.Filled, e.Requested)
	}
	return "no valid host"
}

func (e *NoValidHostError) Unwrap() error { return ErrNoValidHost }
