package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	contents := `
cpu_allocation_ratio: 8.0
ram_allocation_ratio: 2.0
scheduler_default_filters:
  - Ram
  - Cores
scheduler_weight_classes:
  - name: RAMWeigher
    multiplier: 2.5
service_down_time: 30
trust:
  attestation_server: attest.example.com
  attestation_port: 8443
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8.0, cfg.CPUAllocationRatio)
	assert.Equal(t, 2.0, cfg.RAMAllocationRatio)
	assert.Equal(t, []string{"Ram", "Cores"}, cfg.SchedulerDefaultFilters)
	assert.Equal(t, 30, cfg.ServiceDownTime)
	assert.Equal(t, "attest.example.com", cfg.Trust.AttestationServer)
	require.Len(t, cfg.SchedulerWeightClasses, 1)
	assert.Equal(t, 2.5, cfg.SchedulerWeightClasses[0].Multiplier)
}

func TestLoadRejectsUnknownFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler_default_filters:\n  - NotARealFilter\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotARealFilter")
}

func TestLoadRejectsUnknownWeigher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler_weight_classes:\n  - name: NotARealWeigher\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotARealWeigher")
}

func TestValidateRejectsNonPositiveRatios(t *testing.T) {
	cfg := Default()
	cfg.CPUAllocationRatio = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RAMAllocationRatio = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ServiceDownTime = 0
	require.Error(t, cfg.Validate())
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWeigherSpecsConversion(t *testing.T) {
	cfg := Default()
	specs := cfg.WeigherSpecs()
	require.Len(t, specs, 1)
	assert.Equal(t, "RAMWeigher", specs[0].Name)
	assert.Equal(t, 1.0, specs[0].Multiplier)
}
