// Package config provides Viper-based hierarchical configuration management:
// defaults, an optional YAML file, then BUDGET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	} `mapstructure:"log" yaml:"log"`

	Database struct {
		Driver       string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite postgres"`
		DSN          string `mapstructure:"dsn" yaml:"-" validate:"required"`
		MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"gte=0"`
		MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"gte=0"`
	} `mapstructure:"database" yaml:"database"`

	Import struct {
		MaxFileBytes     int64    `mapstructure:"max_file_bytes" yaml:"max_file_bytes" validate:"gt=0"`
		Strict           bool     `mapstructure:"strict" yaml:"strict"`
		OccurrencePolicy string   `mapstructure:"occurrence_policy" yaml:"occurrence_policy" validate:"oneof=index none"`
		TransferKeywords []string `mapstructure:"transfer_keywords" yaml:"transfer_keywords"`
	} `mapstructure:"import" yaml:"import"`

	Rules struct {
		LearnedPriority        int    `mapstructure:"learned_priority" yaml:"learned_priority" validate:"gte=0"`
		DefaultPatternPriority int    `mapstructure:"default_pattern_priority" yaml:"default_pattern_priority" validate:"gte=0"`
		SeedFile               string `mapstructure:"seed_file" yaml:"seed_file"`
	} `mapstructure:"rules" yaml:"rules"`

	AI struct {
		Enabled             bool    `mapstructure:"enabled" yaml:"enabled"`
		Provider            string  `mapstructure:"provider" yaml:"provider" validate:"oneof=perplexity anthropic gemini"`
		Model               string  `mapstructure:"model" yaml:"model"`
		APIKey              string  `mapstructure:"api_key" yaml:"-"` // Never serialize API keys
		BaseURL             string  `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
		MaxConcurrency      int     `mapstructure:"max_concurrency" yaml:"max_concurrency" validate:"gte=1,lte=64"`
		TimeoutSeconds      int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=1,lte=300"`
		MaxAttempts         int     `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=1,lte=10"`
		BackoffBaseMs       int     `mapstructure:"backoff_base_ms" yaml:"backoff_base_ms" validate:"gte=0"`
		BackoffMaxMs        int     `mapstructure:"backoff_max_ms" yaml:"backoff_max_ms" validate:"gte=0"`
		RateLimitMultiplier int     `mapstructure:"rate_limit_multiplier" yaml:"rate_limit_multiplier" validate:"gte=1"`
		RequestsPerMinute   int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute" validate:"gte=1,lte=1000"`
		CircuitMaxFailures  int     `mapstructure:"circuit_max_failures" yaml:"circuit_max_failures" validate:"gte=1"`
		CircuitResetSeconds int     `mapstructure:"circuit_reset_seconds" yaml:"circuit_reset_seconds" validate:"gte=1"`
		FuzzyThreshold      float64 `mapstructure:"fuzzy_threshold" yaml:"fuzzy_threshold" validate:"gte=0,lte=1"`

		Keys struct {
			Perplexity string `mapstructure:"perplexity" yaml:"-"`
			Anthropic  string `mapstructure:"anthropic" yaml:"-"`
			Gemini     string `mapstructure:"gemini" yaml:"-"`
		} `mapstructure:"keys" yaml:"-"`
	} `mapstructure:"ai" yaml:"ai"`

	Metrics struct {
		Textfile string `mapstructure:"textfile" yaml:"textfile"`
	} `mapstructure:"metrics" yaml:"metrics"`
}

var defaultModels = map[string]string{
	"perplexity": "sonar",
	"anthropic":  "claude-3-5-haiku-latest",
	"gemini":     "gemini-2.0-flash",
}

// InitializeConfig initializes Viper configuration with hierarchical loading.
// configFile, when non-empty, replaces the search path.
func InitializeConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.budgetbuddy")
		v.AddConfigPath(".budgetbuddy")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("BUDGET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. Provider credentials come from their conventional, unprefixed variables
	for key, env := range map[string]string{
		"ai.keys.perplexity": "PERPLEXITY_API_KEY",
		"ai.keys.anthropic":  "ANTHROPIC_API_KEY",
		"ai.keys.gemini":     "GEMINI_API_KEY",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.AI.Model == "" {
		config.AI.Model = defaultModels[config.AI.Provider]
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "budgetbuddy.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)

	v.SetDefault("import.max_file_bytes", 16<<20)
	v.SetDefault("import.strict", false)
	v.SetDefault("import.occurrence_policy", "index")
	v.SetDefault("import.transfer_keywords", []string{
		"transfer", "e-transfer", "etransfer", "internet transfer", "tfr",
	})

	v.SetDefault("rules.learned_priority", 5)
	v.SetDefault("rules.default_pattern_priority", 100)
	v.SetDefault("rules.seed_file", "")

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "perplexity")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.max_concurrency", 4)
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.max_attempts", 4)
	v.SetDefault("ai.backoff_base_ms", 500)
	v.SetDefault("ai.backoff_max_ms", 8000)
	v.SetDefault("ai.rate_limit_multiplier", 4)
	v.SetDefault("ai.requests_per_minute", 60)
	v.SetDefault("ai.circuit_max_failures", 5)
	v.SetDefault("ai.circuit_reset_seconds", 30)
	v.SetDefault("ai.fuzzy_threshold", 0.8)

	v.SetDefault("metrics.textfile", "")
}

var validate = validator.New()

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	if config.AI.BackoffMaxMs < config.AI.BackoffBaseMs {
		return fmt.Errorf("ai.backoff_max_ms (%d) must not be below ai.backoff_base_ms (%d)",
			config.AI.BackoffMaxMs, config.AI.BackoffBaseMs)
	}

	return nil
}

// ProviderAPIKey returns ai.api_key when set, else the configured provider's own key.
func (c *Config) ProviderAPIKey() string {
	if c.AI.APIKey != "" {
		return c.AI.APIKey
	}
	switch c.AI.Provider {
	case "anthropic":
		return c.AI.Keys.Anthropic
	case "gemini":
		return c.AI.Keys.Gemini
	default:
		return c.AI.Keys.Perplexity
	}
}

// Timeout is the per-attempt bound on an outbound research call.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// BackoffBase is the first retry delay.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.AI.BackoffBaseMs) * time.Millisecond
}

// BackoffMax caps the retry delay.
func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.AI.BackoffMaxMs) * time.Millisecond
}

// CircuitReset is how long an open circuit waits before probing again.
func (c *Config) CircuitReset() time.Duration {
	return time.Duration(c.AI.CircuitResetSeconds) * time.Second
}
