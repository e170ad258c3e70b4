package config

import (
	"fmt"
	"time"
)

// ProbeConfig holds the probe's environment-configured tunables.
type ProbeConfig struct {
	SampleIntervalSec int
	ProbeRequests     int
	TargetURL         string
	TimeoutSec        float64
}

// DefaultProbeConfig returns the probe's default tunables.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		SampleIntervalSec: 3,
		ProbeRequests:     40,
		TargetURL:         "http://lb/",
		TimeoutSec:        2.5,
	}
}

// LoadProbeConfig applies environment overrides onto the defaults.
func LoadProbeConfig() (ProbeConfig, error) {
	cfg := DefaultProbeConfig()
	cfg.SampleIntervalSec = getenvInt("SAMPLE_INTERVAL", cfg.SampleIntervalSec)
	cfg.ProbeRequests = getenvInt("PROBE_REQUESTS", cfg.ProbeRequests)
	cfg.TargetURL = getenvString("TARGET_URL", cfg.TargetURL)
	cfg.TimeoutSec = getenvFloat("TIMEOUT_S", cfg.TimeoutSec)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid probe config: %w", err)
	}
	return cfg, nil
}

func (c *ProbeConfig) Validate() error {
	if c.SampleIntervalSec <= 0 {
		return fmt.Errorf("sample_interval must be positive, got %d", c.SampleIntervalSec)
	}
	if c.ProbeRequests < 1 {
		return fmt.Errorf("probe_requests must be >= 1, got %d", c.ProbeRequests)
	}
	if c.TargetURL == "" {
		return fmt.Errorf("target_url cannot be empty")
	}
	if c.TimeoutSec <= 0 {
		return fmt.Errorf("timeout_s must be positive, got %f", c.TimeoutSec)
	}
	return nil
}

// Timeout returns TimeoutSec as a time.Duration.
func (c *ProbeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec * float64(time.Second))
}

// SampleInterval returns SampleIntervalSec as a time.Duration.
func (c *ProbeConfig) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSec) * time.Second
}
