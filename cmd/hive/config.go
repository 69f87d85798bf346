package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kestrelworks/hive/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Hive configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/hive/config.yaml
Project-specific overrides can be placed in .hive.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefault()
		if err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("anthropic.aws_profile: %s\n", cfg.Anthropic.AWSProfile)
	fmt.Printf("swarm.max_parallel: %d\n", cfg.Swarm.MaxParallel)
	fmt.Printf("swarm.max_retries: %d\n", cfg.Swarm.MaxRetries)
	fmt.Printf("swarm.subtask_timeout: %s\n", cfg.Swarm.SubtaskTimeout)
	fmt.Printf("swarm.task_timeout: %s\n", cfg.Swarm.TaskTimeout)
	fmt.Printf("swarm.verification_enabled: %t\n", cfg.Swarm.VerificationEnabled)
	fmt.Printf("swarm.verification_threshold: %g\n", cfg.Swarm.VerificationThreshold)
	fmt.Printf("swarm.critic_enabled: %t\n", cfg.Swarm.CriticEnabled)
	fmt.Printf("rate.input_tpm: %d\n", cfg.Rate.InputTPM)
	fmt.Printf("rate.output_tpm: %d\n", cfg.Rate.OutputTPM)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg, config.GetUserConfigPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_aws_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseAWSBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "swarm.max_parallel":
		return strconv.Itoa(cfg.Swarm.MaxParallel), nil
	case "swarm.max_retries":
		return strconv.Itoa(cfg.Swarm.MaxRetries), nil
	case "swarm.subtask_timeout":
		return cfg.Swarm.SubtaskTimeout.String(), nil
	case "swarm.task_timeout":
		return cfg.Swarm.TaskTimeout.String(), nil
	case "swarm.verification_enabled":
		return strconv.FormatBool(cfg.Swarm.VerificationEnabled), nil
	case "swarm.verification_threshold":
		return strconv.FormatFloat(cfg.Swarm.VerificationThreshold, 'g', -1, 64), nil
	case "swarm.critic_enabled":
		return strconv.FormatBool(cfg.Swarm.CriticEnabled), nil
	case "rate.input_tpm":
		return strconv.FormatInt(cfg.Rate.InputTPM, 10), nil
	case "rate.output_tpm":
		return strconv.FormatInt(cfg.Rate.OutputTPM, 10), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_aws_bedrock: %w", err)
		}
		cfg.Anthropic.UseAWSBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "swarm.max_parallel":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_parallel: %w", err)
		}
		cfg.Swarm.MaxParallel = n
	case "swarm.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_retries: %w", err)
		}
		cfg.Swarm.MaxRetries = n
	case "swarm.subtask_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for subtask_timeout: %w", err)
		}
		cfg.Swarm.SubtaskTimeout = d
	case "swarm.task_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for task_timeout: %w", err)
		}
		cfg.Swarm.TaskTimeout = d
	case "swarm.verification_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for verification_enabled: %w", err)
		}
		cfg.Swarm.VerificationEnabled = b
	case "swarm.verification_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for verification_threshold: %w", err)
		}
		cfg.Swarm.VerificationThreshold = f
	case "swarm.critic_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for critic_enabled: %w", err)
		}
		cfg.Swarm.CriticEnabled = b
	case "rate.input_tpm":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for input_tpm: %w", err)
		}
		cfg.Rate.InputTPM = n
	case "rate.output_tpm":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for output_tpm: %w", err)
		}
		cfg.Rate.OutputTPM = n
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
