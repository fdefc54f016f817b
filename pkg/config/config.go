// Package config loads the scheduler's YAML configuration file and
// layers it over documented defaults, following the teacher's
// yaml.v3-tagged-struct convention. Filter and weigher names are
// validated against their registries at load time so a typo surfaces as
// a config error, not a runtime UnknownFilter.
package config

import (
	"fmt"
	"os"

	"github.com/cuemby/gantt-scheduler/pkg/filters"
	"github.com/cuemby/gantt-scheduler/pkg/weighers"
	"gopkg.in/yaml.v3"
)

// TrustConfig carries the attestation service connection settings named
// in the spec's trust block.
type TrustConfig struct {
	AttestationServer       string `yaml:"attestation_server"`
	AttestationPort         int    `yaml:"attestation_port"`
	AttestationAPIURL       string `yaml:"attestation_api_url"`
	AttestationServerCAFile string `yaml:"attestation_server_ca_file"`
	AttestationAuthBlob     string `yaml:"attestation_auth_blob"`
	AttestationAuthTimeout  int    `yaml:"attestation_auth_timeout"`
}

// WeigherConfig names a weigher and its multiplier, as one entry of
// scheduler_weight_classes.
type WeigherConfig struct {
	Name       string  `yaml:"name"`
	Multiplier float64 `yaml:"multiplier"`
}

// Config mirrors the recognized configuration options named in the
// spec's Configuration section.
type Config struct {
	CPUAllocationRatio      float64         `yaml:"cpu_allocation_ratio"`
	RAMAllocationRatio      float64         `yaml:"ram_allocation_ratio"`
	SchedulerDefaultFilters []string        `yaml:"scheduler_default_filters"`
	SchedulerWeightClasses  []WeigherConfig `yaml:"scheduler_weight_classes"`
	ServiceDownTime         int             `yaml:"service_down_time"`
	RejectLegacyMethods     bool            `yaml:"reject_legacy_methods"`
	Trust                   TrustConfig     `yaml:"trust"`

	ListenAddress  string `yaml:"listen_address"`
	MetricsAddress string `yaml:"metrics_address"`
	InventoryAddr  string `yaml:"inventory_address"`
	LogLevel       string `yaml:"log_level"`
	LogJSON        bool   `yaml:"log_json"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		CPUAllocationRatio:      16.0,
		RAMAllocationRatio:      1.5,
		SchedulerDefaultFilters: []string{"ActiveCompute", "Ram", "Cores", "ImageProperties"},
		SchedulerWeightClasses:  []WeigherConfig{{Name: "RAMWeigher", Multiplier: 1.0}},
		ServiceDownTime:         60,
		RejectLegacyMethods:     false,
		Trust: TrustConfig{
			AttestationAuthTimeout: 60,
		},
		ListenAddress:  ":7090",
		MetricsAddress: ":9090",
		LogLevel:       "info",
	}
}

// Load reads path, if non-empty, and unmarshals it over Default(). An
// empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks scheduler_default_filters and scheduler_weight_classes
// against the filter and weigher registries, and rejects nonsensical
// ratios/timeouts.
func (c *Config) Validate() error {
	if c.CPUAllocationRatio <= 0 {
		return fmt.Errorf("config: cpu_allocation_ratio must be positive, got %v", c.CPUAllocationRatio)
	}
	if c.RAMAllocationRatio <= 0 {
		return fmt.Errorf("config: ram_allocation_ratio must be positive, got %v", c.RAMAllocationRatio)
	}
	if c.ServiceDownTime <= 0 {
		return fmt.Errorf("config: service_down_time must be positive, got %v", c.ServiceDownTime)
	}

	known := make(map[string]bool)
	for _, name := range filters.Names() {
		known[name] = true
	}
	for _, name := range c.SchedulerDefaultFilters {
		if !known[name] {
			return fmt.Errorf("config: scheduler_default_filters: unknown filter %q", name)
		}
	}

	knownWeighers := make(map[string]bool)
	for _, name := range weighers.Names() {
		knownWeighers[name] = true
	}
	for _, w := range c.SchedulerWeightClasses {
		if !knownWeighers[w.Name] {
			return fmt.Errorf("config: scheduler_weight_classes: unknown weigher %q", w.Name)
		}
	}
	return nil
}

// WeigherSpecs converts SchedulerWeightClasses into the shape
// pkg/weighers.NewChain expects.
func (c *Config) WeigherSpecs() []weighers.Spec {
	specs := make([]weighers.Spec, len(c.SchedulerWeightClasses))
	for i, w := range c.SchedulerWeightClasses {
		specs[i] = weighers.Spec{Name: w.Name, Multiplier: w.Multiplier}
	}
	return specs
}
