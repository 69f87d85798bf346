package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelworks/hive/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resolved configuration and budgets",
	Long: `Display the configuration Hive would run with from this directory.

Shows:
  - API key presence and source
  - Model and transport (API or Bedrock)
  - Scheduling limits and timeouts
  - Token rate budgets
  - Which config files are in effect`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	key, keyErr := config.GetAPIKey(cfg)
	source := config.GetAPIKeySource(cfg)

	fmt.Println("Anthropic:")
	if keyErr != nil {
		fmt.Println("  API key: (not set)")
	} else {
		fmt.Printf("  API key: %s (%s)\n", config.MaskAPIKey(key), source)
	}
	fmt.Printf("  Model: %s\n", cfg.Anthropic.Model)
	if cfg.Anthropic.UseAWSBedrock {
		region := cfg.Anthropic.AWSRegion
		if region == "" {
			region = "(default)"
		}
		fmt.Printf("  Transport: AWS Bedrock, region %s\n", region)
	} else {
		fmt.Println("  Transport: direct API")
	}

	fmt.Println("\nScheduling:")
	fmt.Printf("  Max parallel subtasks: %d\n", cfg.Swarm.MaxParallel)
	fmt.Printf("  Retry budget: %d\n", cfg.Swarm.MaxRetries)
	fmt.Printf("  Subtask timeout: %s\n", formatDuration(cfg.Swarm.SubtaskTimeout))
	fmt.Printf("  Task timeout: %s\n", formatDuration(cfg.Swarm.TaskTimeout))
	if cfg.Swarm.VerificationEnabled {
		fmt.Printf("  Verification: on (threshold %.2f)\n", cfg.Swarm.VerificationThreshold)
	} else {
		fmt.Println("  Verification: off")
	}
	if cfg.Swarm.CriticEnabled {
		fmt.Println("  Critic review: on")
	} else {
		fmt.Println("  Critic review: off")
	}

	fmt.Println("\nRate budgets:")
	fmt.Printf("  Input: %s tokens/min\n", formatNumber(cfg.Rate.InputTPM))
	fmt.Printf("  Output: %s tokens/min\n", formatNumber(cfg.Rate.OutputTPM))

	fmt.Println("\nConfig files:")
	userPath := config.GetUserConfigPath()
	if _, err := os.Stat(userPath); err == nil {
		fmt.Printf("  User: %s\n", userPath)
	} else {
		fmt.Printf("  User: %s (not present)\n", userPath)
	}
	if projectPath := config.GetProjectConfigPath(); projectPath != "" {
		fmt.Printf("  Project: %s\n", projectPath)
	}

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s > 0 {
			return fmt.Sprintf("%dm%ds", m, s)
		}
		return fmt.Sprintf("%dm", m)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}

// formatNumber formats a number with commas.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	// Add commas every 3 digits from the right
	var result strings.Builder
	offset := len(s) % 3
	if offset > 0 {
		result.WriteString(s[:offset])
		if len(s) > offset {
			result.WriteString(",")
		}
	}
	for i := offset; i < len(s); i += 3 {
		result.WriteString(s[i : i+3])
		if i+3 < len(s) {
			result.WriteString(",")
		}
	}
	return result.String()
}
