// Package config handles configuration loading and management for Hive.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Hive.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Swarm     SwarmConfig     `mapstructure:"swarm"`
	Rate      RateConfig      `mapstructure:"rate"`
}

// AnthropicConfig holds reasoning-service settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key; ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier used for every role.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes calls through AWS Bedrock instead of the API.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the AWS shared-config profile for Bedrock.
	AWSProfile string `mapstructure:"aws_profile"`
}

// SwarmConfig holds task scheduling settings.
type SwarmConfig struct {
	// MaxParallel bounds concurrent subtask dispatches per task.
	MaxParallel int `mapstructure:"max_parallel"`
	// MaxRetries is the per-subtask retry budget.
	MaxRetries int `mapstructure:"max_retries"`
	// SubtaskTimeout bounds each individual reasoning call.
	SubtaskTimeout time.Duration `mapstructure:"subtask_timeout"`
	// TaskTimeout is the wall-clock limit for one task.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// VerificationEnabled routes results through a verifier pass.
	VerificationEnabled bool `mapstructure:"verification_enabled"`
	// VerificationThreshold is the minimum passing verifier score.
	VerificationThreshold float64 `mapstructure:"verification_threshold"`
	// CriticEnabled runs a critic review pass on finished tasks.
	CriticEnabled bool `mapstructure:"critic_enabled"`
}

// RateConfig holds the shared token budgets per minute.
type RateConfig struct {
	InputTPM  int64 `mapstructure:"input_tpm"`
	OutputTPM int64 `mapstructure:"output_tpm"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (HIVE_* and ANTHROPIC_API_KEY)
// 2. Project config (.hive.yaml in current directory or parent)
// 3. User config (~/.config/hive/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("HIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("swarm.max_parallel", 3)
	v.SetDefault("swarm.max_retries", 3)
	v.SetDefault("swarm.subtask_timeout", "2m")
	v.SetDefault("swarm.task_timeout", "5m")
	v.SetDefault("swarm.verification_enabled", true)
	v.SetDefault("swarm.verification_threshold", 0.6)
	v.SetDefault("swarm.critic_enabled", true)

	v.SetDefault("rate.input_tpm", 80000)
	v.SetDefault("rate.output_tpm", 16000)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Swarm: SwarmConfig{
			MaxParallel:           3,
			MaxRetries:            3,
			SubtaskTimeout:        2 * time.Minute,
			TaskTimeout:           5 * time.Minute,
			VerificationEnabled:   true,
			VerificationThreshold: 0.6,
			CriticEnabled:         true,
		},
		Rate: RateConfig{
			InputTPM:  80000,
			OutputTPM: 16000,
		},
	}
}

// getUserConfigDir returns the XDG config directory for Hive.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "hive")
	}
	return filepath.Join(home, ".config", "hive")
}

// findProjectConfig searches for .hive.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".hive.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}
