// Package attestation implements the process-wide trust-level cache
// consulted by the Trusted filter: a periodically refreshed view of
// each host's attestation status, backed by a remote attestation
// service the scheduler treats as an out-of-scope collaborator.
package attestation

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/log"
	"github.com/cuemby/gantt-scheduler/pkg/metrics"
)

// TrustLevel is the attestation verdict for a host.
type TrustLevel string

const (
	Trusted   TrustLevel = "trusted"
	Untrusted TrustLevel = "untrusted"
	Unknown   TrustLevel = "unknown"
)

// Claim is one host's attestation result as reported by the service.
type Claim struct {
	Host      string
	TrustLvl  TrustLevel
	Vtime     string // ISO-8601, parsed by the cache
}

// Service polls the remote attestation service for a set of hosts. The
// production implementation is GRPCService (grpcclient.go); tests use a
// fake.
type Service interface {
	Poll(ctx context.Context, hosts []string) ([]Claim, error)
}

type entry struct {
	trustLvl TrustLevel
	vtime    time.Time
}

// Cache is the attestation cache described in the spec: host -> {
// trust_lvl, vtime }, refreshed as a whole when the requested host's
// entry is missing or its vtime is older than AuthTimeout.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	service    Service
	AuthTimeout time.Duration
	nowFunc    func() time.Time
	logger     zerologLogger
}

// zerologLogger is the minimal surface Cache needs from pkg/log, kept
// narrow so tests don't need a real logger.
type zerologLogger interface {
	Warn(msg string)
}

type noopLogger struct{}

func (noopLogger) Warn(string) {}

// NewCache builds an attestation cache polling service, refreshing any
// entry older than authTimeout.
func NewCache(service Service, authTimeout time.Duration) *Cache {
	return &Cache{
		entries:     make(map[string]entry),
		service:     service,
		AuthTimeout: authTimeout,
		nowFunc:     time.Now,
		logger:      defaultLogger{},
	}
}

type defaultLogger struct{}

func (defaultLogger) Warn(msg string) { log.WithComponent("attestation").Warn().Msg(msg) }

// GetHostAttestation returns host's cached trust level, refreshing the
// whole cache first if the entry is stale or absent. The refresh itself
// is a critical section: the lock is held for the duration of the poll,
// so concurrent callers observe one consistent refresh rather than
// racing duplicate polls.
func (c *Cache) GetHostAttestation(ctx context.Context, host string) TrustLevel {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[host]; !ok {
		c.initEntryLocked(host)
	}
	if c.nowFunc().Sub(c.entries[host].vtime) > c.AuthTimeout {
		c.refreshLocked(ctx)
	} else {
		metrics.AttestationCacheHitsTotal.Inc()
	}
	return c.entries[host].trustLvl
}

func (c *Cache) initEntryLocked(host string) {
	c.entries[host] = entry{trustLvl: Unknown, vtime: time.Unix(0, 0).UTC()}
}

// refreshLocked polls the service for every known host, resetting all
// entries to Unknown first so a partial or failed response never leaves
// a stale Trusted verdict in place. Caller must hold c.mu.
func (c *Cache) refreshLocked(ctx context.Context) {
	metrics.AttestationCacheRefreshesTotal.Inc()
	for h := range c.entries {
		c.initEntryLocked(h)
	}
	hosts := make([]string, 0, len(c.entries))
	for h := range c.entries {
		hosts = append(hosts, h)
	}

	claims, err := c.service.Poll(ctx, hosts)
	if err != nil {
		metrics.AttestationServiceErrorsTotal.Inc()
		c.logger.Warn("attestation service unavailable, leaving hosts unknown: " + err.Error())
		return
	}
	for _, claim := range claims {
		c.applyClaimLocked(claim)
	}
}

func (c *Cache) applyClaimLocked(claim Claim) {
	vtime, err := time.Parse(time.RFC3339, claim.Vtime)
	if err != nil {
		c.entries[claim.Host] = entry{trustLvl: Unknown, vtime: c.nowFunc()}
		return
	}
	c.entries[claim.Host] = entry{trustLvl: claim.TrustLvl, vtime: vtime.UTC()}
}
