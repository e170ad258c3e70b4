package config

import "fmt"

// ExecutorConfig holds the executor's environment-configured tunables.
// Its MaxReplicas is deliberately independent from the planner's — the
// executor cap is the hard safety wall and takes precedence regardless of
// what the planner believes the ceiling is.
type ExecutorConfig struct {
	MaxReplicas int
}

// DefaultExecutorConfig returns the executor's default max replica cap (5).
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{MaxReplicas: 5}
}

// LoadExecutorConfig applies the MAX_REPLICAS environment override.
func LoadExecutorConfig() (ExecutorConfig, error) {
	cfg := DefaultExecutorConfig()
	cfg.MaxReplicas = getenvInt("MAX_REPLICAS", cfg.MaxReplicas)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid executor config: %w", err)
	}
	return cfg, nil
}

func (c *ExecutorConfig) Validate() error {
	if c.MaxReplicas < 1 {
		return fmt.Errorf("max_replicas must be >= 1, got %d", c.MaxReplicas)
	}
	return nil
}
