package attestation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	claims  []Claim
	err     error
	calls   int
}

func (f *fakeService) Poll(ctx context.Context, hosts []string) ([]Claim, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

// S5. Attestation refresh.
func TestGetHostAttestationRefreshesOnceWithinAuthTimeout(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &fakeService{claims: []Claim{{Host: "host-a", TrustLvl: Trusted, Vtime: now.Format(time.RFC3339)}}}
	cache := NewCache(svc, 60*time.Second)
	cache.nowFunc = func() time.Time { return now }

	level := cache.GetHostAttestation(context.Background(), "host-a")
	require.Equal(t, Trusted, level)
	assert.Equal(t, 1, svc.calls)

	// Second call within auth_timeout must not call the service again.
	level = cache.GetHostAttestation(context.Background(), "host-a")
	assert.Equal(t, Trusted, level)
	assert.Equal(t, 1, svc.calls, "cache must be reused within auth_timeout")
}

func TestGetHostAttestationRefreshesAfterTimeout(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &fakeService{claims: []Claim{{Host: "host-a", TrustLvl: Trusted, Vtime: now.Format(time.RFC3339)}}}
	cache := NewCache(svc, 60*time.Second)
	cache.nowFunc = func() time.Time { return now }

	cache.GetHostAttestation(context.Background(), "host-a")

	cache.nowFunc = func() time.Time { return now.Add(61 * time.Second) }
	cache.GetHostAttestation(context.Background(), "host-a")
	assert.Equal(t, 2, svc.calls)
}

func TestGetHostAttestationUnavailableServiceLeavesUnknown(t *testing.T) {
	svc := &fakeService{err: errors.New("connection refused")}
	cache := NewCache(svc, 60*time.Second)

	level := cache.GetHostAttestation(context.Background(), "host-a")
	assert.Equal(t, Unknown, level)
}

func TestGetHostAttestationMalformedVtimeMarksUnknown(t *testing.T) {
	svc := &fakeService{claims: []Claim{{Host: "host-a", TrustLvl: Trusted, Vtime: "not-a-time"}}}
	cache := NewCache(svc, 60*time.Second)

	level := cache.GetHostAttestation(context.Background(), "host-a")
	assert.Equal(t, Unknown, level)
}
