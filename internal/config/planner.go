package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PlannerConfig holds every tunable the planner process needs, plus the
// oracle HTTP client's backoff/circuit settings.
type PlannerConfig struct {
	LLMURL    string `yaml:"llm_url"`
	LLMAPIKey string `yaml:"-"` // never serialized; env-only for secrecy

	CooldownSec      int     `yaml:"cooldown_sec"`
	MinReplicas      int     `yaml:"min_replicas"`
	MaxReplicas      int     `yaml:"max_replicas"`
	LLMRPM           int     `yaml:"llm_rpm"`
	LLMHeartbeatSec  int     `yaml:"llm_heartbeat_sec"`
	LLMBackoffBase   int     `yaml:"llm_backoff_base_sec"`
	LLMBackoffMax    int     `yaml:"llm_backoff_max_sec"`
	HistWindows      int     `yaml:"hist_windows"`
	WarmupWindows    int     `yaml:"warmup_windows"`
	LowNeedN         int     `yaml:"low_need_n"`
	AlphaUp          float64 `yaml:"alpha_up"`
	BetaDown         float64 `yaml:"beta_down"`
	KSigma           float64 `yaml:"k_sigma"`
	IdleHintMS       float64 `yaml:"idle_hint_ms"`

	Circuit CircuitConfig `yaml:"circuit"`
	Budget  BudgetConfig  `yaml:"budget"`
}

// BudgetConfig bounds the oracle's daily call volume independent of the
// per-minute LLMRPM token bucket.
type BudgetConfig struct {
	DailyLimit   int     `yaml:"daily_limit"`
	ResetHourUTC int     `yaml:"reset_hour_utc"`
	WarnFraction float64 `yaml:"warn_fraction"`
}

// CircuitConfig configures the gobreaker-backed circuit around the oracle
// HTTP round-trip; independent of the explicit 429 backoff state machine,
// which PlannerConfig's LLMBackoff* fields drive.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// DefaultPlannerConfig returns the planner's default tunables.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		CooldownSec:     20,
		MinReplicas:     2,
		MaxReplicas:     10,
		LLMRPM:          3,
		LLMHeartbeatSec: 120,
		LLMBackoffBase:  5,
		LLMBackoffMax:   300,
		HistWindows:     60,
		WarmupWindows:   12,
		LowNeedN:        3,
		AlphaUp:         8.0,
		BetaDown:        1.10,
		KSigma:          2.5,
		IdleHintMS:      0,
		Circuit: CircuitConfig{
			FailureThreshold: 3,
			OpenTimeout:      60 * time.Second,
			RequestTimeout:   20 * time.Second,
		},
		Budget: BudgetConfig{
			DailyLimit:   10000,
			ResetHourUTC: 0,
			WarnFraction: 0.8,
		},
	}
}

// LoadPlannerConfig reads an optional YAML file (skipped entirely if
// configPath is empty or missing) over the defaults, then applies
// environment overrides, then validates.
func LoadPlannerConfig(configPath string) (PlannerConfig, error) {
	cfg := DefaultPlannerConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read planner config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse planner config: %w", err)
		}
	}

	cfg.LLMURL = getenvString("LLM_URL", cfg.LLMURL)
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	cfg.CooldownSec = getenvInt("COOLDOWN_SEC", cfg.CooldownSec)
	cfg.MinReplicas = getenvInt("MIN_REPLICAS", cfg.MinReplicas)
	cfg.MaxReplicas = getenvInt("MAX_REPLICAS", cfg.MaxReplicas)
	cfg.LLMRPM = getenvInt("LLM_RPM", cfg.LLMRPM)
	cfg.LLMHeartbeatSec = getenvInt("LLM_HEARTBEAT_SEC", cfg.LLMHeartbeatSec)
	cfg.LLMBackoffBase = getenvInt("LLM_BACKOFF_BASE_SEC", cfg.LLMBackoffBase)
	cfg.LLMBackoffMax = getenvInt("LLM_BACKOFF_MAX_SEC", cfg.LLMBackoffMax)
	cfg.HistWindows = getenvInt("HIST_WINDOWS", cfg.HistWindows)
	cfg.WarmupWindows = getenvInt("WARMUP_WINDOWS", cfg.WarmupWindows)
	cfg.LowNeedN = getenvInt("LOW_NEED_N", cfg.LowNeedN)
	cfg.AlphaUp = getenvFloat("ALPHA_UP", cfg.AlphaUp)
	cfg.BetaDown = getenvFloat("BETA_DOWN", cfg.BetaDown)
	cfg.KSigma = getenvFloat("K_SIGMA", cfg.KSigma)
	cfg.IdleHintMS = getenvFloat("IDLE_HINT_MS", cfg.IdleHintMS)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid planner config: %w", err)
	}
	return cfg, nil
}

// Validate performs an eager, fail-fast check of every field.
func (c *PlannerConfig) Validate() error {
	if c.CooldownSec < 0 {
		return fmt.Errorf("cooldown_sec cannot be negative, got %d", c.CooldownSec)
	}
	if c.MinReplicas < 1 {
		return fmt.Errorf("min_replicas must be >= 1, got %d", c.MinReplicas)
	}
	if c.MaxReplicas < c.MinReplicas {
		return fmt.Errorf("max_replicas (%d) must be >= min_replicas (%d)", c.MaxReplicas, c.MinReplicas)
	}
	if c.LLMRPM < 0 {
		return fmt.Errorf("llm_rpm cannot be negative, got %d", c.LLMRPM)
	}
	if c.LLMHeartbeatSec <= 0 {
		return fmt.Errorf("llm_heartbeat_sec must be positive, got %d", c.LLMHeartbeatSec)
	}
	if c.LLMBackoffMax < c.LLMBackoffBase {
		return fmt.Errorf("llm_backoff_max_sec (%d) must be >= llm_backoff_base_sec (%d)", c.LLMBackoffMax, c.LLMBackoffBase)
	}
	if c.HistWindows < 1 {
		return fmt.Errorf("hist_windows must be >= 1, got %d", c.HistWindows)
	}
	if c.WarmupWindows < 1 {
		return fmt.Errorf("warmup_windows must be >= 1, got %d", c.WarmupWindows)
	}
	if c.LowNeedN < 1 {
		return fmt.Errorf("low_need_n must be >= 1, got %d", c.LowNeedN)
	}
	return nil
}

// HasOracle reports whether an API key is configured — the gate the engine
// checks right after the backoff gate before the oracle is ever consulted.
func (c *PlannerConfig) HasOracle() bool {
	return c.LLMAPIKey != ""
}
