// Package config handles configuration loading for the covered-call
// fundamentals engine. It supports YAML config files with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Pipeline    PipelineConfig    `mapstructure:"pipeline"     yaml:"pipeline"`
	Thresholds  ThresholdConfig   `mapstructure:"thresholds"   yaml:"thresholds"`
	TradePolicy TradePolicyConfig `mapstructure:"trade_policy" yaml:"trade_policy"`
	LLM         LLMConfig         `mapstructure:"llm"          yaml:"llm"`
	Provider    ProviderConfig    `mapstructure:"provider"     yaml:"provider"`
	API         APIConfig         `mapstructure:"api"          yaml:"api"`
	Logging     LoggingConfig     `mapstructure:"logging"      yaml:"logging"`
}

// PipelineConfig selects the evaluation mode and debate behavior.
type PipelineConfig struct {
	Mode        string `mapstructure:"mode"         yaml:"mode"` // "deterministic", "llm", "agentic"
	ForceDebate bool   `mapstructure:"force_debate" yaml:"force_debate"`
}

// ThresholdConfig holds the deterministic evaluator thresholds.
type ThresholdConfig struct {
	StrongGrowthPct     float64 `mapstructure:"strong_growth_pct"      yaml:"strong_growth_pct"`
	MinOperMarginPct    float64 `mapstructure:"min_oper_margin_pct"    yaml:"min_oper_margin_pct"`
	StrongOperMarginPct float64 `mapstructure:"strong_oper_margin_pct" yaml:"strong_oper_margin_pct"`
	MaxDebtToEquity     float64 `mapstructure:"max_debt_to_equity"     yaml:"max_debt_to_equity"`
}

// TradePolicyConfig holds the trade-action policy settings.
type TradePolicyConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
}

// LLMConfig holds language-model backend configuration.
type LLMConfig struct {
	Provider   string `mapstructure:"provider"    yaml:"provider"` // "ollama", "mock"
	OllamaURL  string `mapstructure:"ollama_url"  yaml:"ollama_url"`
	Model      string `mapstructure:"model"       yaml:"model"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// ProviderConfig selects the fundamentals snapshot provider.
type ProviderConfig struct {
	Name string `mapstructure:"name" yaml:"name"` // "stub", "yahoo"
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "debug", "info", "warn", "error"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.coveredcall/config.yaml (home directory)
//  3. /etc/coveredcall/config.yaml (system)
//
// Environment variables override config file values.
// Format: COVEREDCALL_<SECTION>_<KEY>, e.g., COVEREDCALL_LLM_MODEL
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".coveredcall"))
	v.AddConfigPath("/etc/coveredcall")

	v.SetEnvPrefix("COVEREDCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("COVEREDCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// Default returns a Config populated with defaults only, bypassing
// files and the environment. Useful for tests and embedded use.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal into Config.
		panic(fmt.Sprintf("config: default unmarshal: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for values the pipeline cannot run
// with, so misconfiguration fails before a run starts rather than mid-run.
func (c *Config) Validate() error {
	switch c.Pipeline.Mode {
	case "deterministic", "det", "llm", "agentic", "llm_agentic", "":
	default:
		return fmt.Errorf("config: unknown pipeline mode %q", c.Pipeline.Mode)
	}
	if c.TradePolicy.MinConfidence < 0 || c.TradePolicy.MinConfidence > 1 {
		return fmt.Errorf("config: trade_policy.min_confidence %v outside [0,1]", c.TradePolicy.MinConfidence)
	}
	if c.Thresholds.MinOperMarginPct > c.Thresholds.StrongOperMarginPct {
		return fmt.Errorf("config: min_oper_margin_pct %v exceeds strong_oper_margin_pct %v",
			c.Thresholds.MinOperMarginPct, c.Thresholds.StrongOperMarginPct)
	}
	if c.LLM.TimeoutSec <= 0 {
		return fmt.Errorf("config: llm.timeout_sec must be positive, got %d", c.LLM.TimeoutSec)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Pipeline defaults
	v.SetDefault("pipeline.mode", "deterministic")
	v.SetDefault("pipeline.force_debate", false)

	// Deterministic evaluator thresholds
	v.SetDefault("thresholds.strong_growth_pct", 5.0)
	v.SetDefault("thresholds.min_oper_margin_pct", 5.0)
	v.SetDefault("thresholds.strong_oper_margin_pct", 10.0)
	v.SetDefault("thresholds.max_debt_to_equity", 2.0)

	// Trade policy defaults
	v.SetDefault("trade_policy.min_confidence", 0.55)

	// LLM defaults
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "llama3.1:8b")
	v.SetDefault("llm.timeout_sec", 30)

	// Snapshot provider defaults
	v.SetDefault("provider.name", "stub")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
}

// overrideFromEnv explicitly reads a few keys from environment variables
// so deployment scripts can steer runs without a config file.
func overrideFromEnv(cfg *Config) {
	if mode := os.Getenv("COVEREDCALL_PIPELINE_MODE"); mode != "" {
		cfg.Pipeline.Mode = mode
	}
	if url := os.Getenv("COVEREDCALL_LLM_OLLAMA_URL"); url != "" {
		cfg.LLM.OllamaURL = url
	}
	if model := os.Getenv("COVEREDCALL_LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if name := os.Getenv("COVEREDCALL_PROVIDER_NAME"); name != "" {
		cfg.Provider.Name = name
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
