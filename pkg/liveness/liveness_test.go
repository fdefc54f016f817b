package liveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeatOracleUpAndDown(t *testing.T) {
	o := NewHeartbeatOracle(60 * time.Second)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o.nowFunc = func() time.Time { return base }

	assert.False(t, o.IsUp("host-a"), "never-seen service is down")

	o.Record("host-a", base.Add(-30*time.Second))
	assert.True(t, o.IsUp("host-a"))

	o.Record("host-a", base.Add(-90*time.Second))
	o.nowFunc = func() time.Time { return base }
	// Record with an older timestamp must not move the last-seen time backward.
	assert.True(t, o.IsUp("host-a"))
}

func TestHeartbeatOracleDownAfterThreshold(t *testing.T) {
	o := NewHeartbeatOracle(60 * time.Second)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o.Record("host-a", base)
	o.nowFunc = func() time.Time { return base.Add(61 * time.Second) }

	assert.False(t, o.IsUp("host-a"))
}

func TestHeartbeatOracleEvict(t *testing.T) {
	o := NewHeartbeatOracle(time.Minute)
	o.Record("host-a", time.Now())
	o.Evict("host-a")
	assert.False(t, o.IsUp("host-a"))
}
