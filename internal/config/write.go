package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for serialization.
type fileConfig struct {
	Anthropic struct {
		APIKey        string `yaml:"api_key,omitempty"`
		Model         string `yaml:"model"`
		UseAWSBedrock bool   `yaml:"use_aws_bedrock"`
		AWSRegion     string `yaml:"aws_region,omitempty"`
		AWSProfile    string `yaml:"aws_profile,omitempty"`
	} `yaml:"anthropic"`
	Swarm struct {
		MaxParallel           int     `yaml:"max_parallel"`
		MaxRetries            int     `yaml:"max_retries"`
		SubtaskTimeout        string  `yaml:"subtask_timeout"`
		TaskTimeout           string  `yaml:"task_timeout"`
		VerificationEnabled   bool    `yaml:"verification_enabled"`
		VerificationThreshold float64 `yaml:"verification_threshold"`
		CriticEnabled         bool    `yaml:"critic_enabled"`
	} `yaml:"swarm"`
	Rate struct {
		InputTPM  int64 `yaml:"input_tpm"`
		OutputTPM int64 `yaml:"output_tpm"`
	} `yaml:"rate"`
}

// Save writes the configuration to the given path as YAML,
// creating parent directories as needed.
func Save(cfg *Config, path string) error {
	var fc fileConfig
	fc.Anthropic.APIKey = cfg.Anthropic.APIKey
	fc.Anthropic.Model = cfg.Anthropic.Model
	fc.Anthropic.UseAWSBedrock = cfg.Anthropic.UseAWSBedrock
	fc.Anthropic.AWSRegion = cfg.Anthropic.AWSRegion
	fc.Anthropic.AWSProfile = cfg.Anthropic.AWSProfile
	fc.Swarm.MaxParallel = cfg.Swarm.MaxParallel
	fc.Swarm.MaxRetries = cfg.Swarm.MaxRetries
	fc.Swarm.SubtaskTimeout = cfg.Swarm.SubtaskTimeout.String()
	fc.Swarm.TaskTimeout = cfg.Swarm.TaskTimeout.String()
	fc.Swarm.VerificationEnabled = cfg.Swarm.VerificationEnabled
	fc.Swarm.VerificationThreshold = cfg.Swarm.VerificationThreshold
	fc.Swarm.CriticEnabled = cfg.Swarm.CriticEnabled
	fc.Rate.InputTPM = cfg.Rate.InputTPM
	fc.Rate.OutputTPM = cfg.Rate.OutputTPM

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// WriteDefault writes a default config file to the user config path.
// It refuses to overwrite an existing file.
func WriteDefault() (string, error) {
	path := GetUserConfigPath()
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}
	if err := Save(Default(), path); err != nil {
		return path, err
	}
	return path, nil
}
