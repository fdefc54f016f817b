package health

import (
	"context"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/log"
	"github.com/cuemby/gantt-scheduler/pkg/metrics"
	"github.com/rs/zerolog"
)

// Probe ties a Checker to a named dependency and reports status into
// pkg/metrics' component registry, which backs the /ready endpoint.
type Probe struct {
	Name    string
	Checker Checker
	Config  Config
	status  *Status
}

// NewProbe constructs a Probe with the given config, defaulting to
// DefaultConfig's retry/timeout behavior when cfg is the zero value.
func NewProbe(name string, checker Checker, cfg Config) *Probe {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Probe{Name: name, Checker: checker, Config: cfg, status: NewStatus()}
}

// Run polls the checker on Config.Interval until ctx is canceled,
// updating pkg/metrics' component health after every check.
func (p *Probe) Run(ctx context.Context) {
	logger := log.WithComponent("health")
	ticker := time.NewTicker(p.Config.Interval)
	defer ticker.Stop()

	p.check(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx, logger)
		}
	}
}

func (p *Probe) check(ctx context.Context, logger zerolog.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, p.Config.Timeout)
	result := p.Checker.Check(checkCtx)
	cancel()

	wasHealthy := p.status.Healthy
	p.status.Update(result, p.Config)
	metrics.UpdateComponent(p.Name, p.status.Healthy, result.Message)

	if wasHealthy && !p.status.Healthy {
		logger.Warn().Str("dependency", p.Name).Str("message", result.Message).Msg("dependency marked unhealthy")
	}
}
