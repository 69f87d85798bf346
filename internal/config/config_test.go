package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Anthropic.Model == "" {
		t.Error("expected a default model")
	}

	if cfg.Swarm.MaxParallel != 3 {
		t.Errorf("expected default max_parallel 3, got %d", cfg.Swarm.MaxParallel)
	}

	if cfg.Swarm.MaxRetries != 3 {
		t.Errorf("expected default max_retries 3, got %d", cfg.Swarm.MaxRetries)
	}

	if cfg.Swarm.SubtaskTimeout != 2*time.Minute {
		t.Errorf("expected subtask timeout 2m, got %v", cfg.Swarm.SubtaskTimeout)
	}

	if cfg.Swarm.TaskTimeout != 5*time.Minute {
		t.Errorf("expected task timeout 5m, got %v", cfg.Swarm.TaskTimeout)
	}

	if !cfg.Swarm.VerificationEnabled {
		t.Error("expected verification to be enabled by default")
	}

	if cfg.Swarm.VerificationThreshold != 0.6 {
		t.Errorf("expected verification threshold 0.6, got %v", cfg.Swarm.VerificationThreshold)
	}

	if !cfg.Swarm.CriticEnabled {
		t.Error("expected critic review to be enabled by default")
	}

	if cfg.Rate.InputTPM != 80000 {
		t.Errorf("expected input_tpm 80000, got %d", cfg.Rate.InputTPM)
	}

	if cfg.Rate.OutputTPM != 16000 {
		t.Errorf("expected output_tpm 16000, got %d", cfg.Rate.OutputTPM)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: sk-ant-test-key
  model: claude-opus-4
swarm:
  max_parallel: 5
  max_retries: 1
  subtask_timeout: 30s
  task_timeout: 10m
  verification_enabled: false
rate:
  input_tpm: 40000
  output_tpm: 8000
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-test-key" {
		t.Errorf("expected api_key 'sk-ant-test-key', got %q", cfg.Anthropic.APIKey)
	}

	if cfg.Anthropic.Model != "claude-opus-4" {
		t.Errorf("expected model 'claude-opus-4', got %q", cfg.Anthropic.Model)
	}

	if cfg.Swarm.MaxParallel != 5 {
		t.Errorf("expected max_parallel 5, got %d", cfg.Swarm.MaxParallel)
	}

	if cfg.Swarm.MaxRetries != 1 {
		t.Errorf("expected max_retries 1, got %d", cfg.Swarm.MaxRetries)
	}

	if cfg.Swarm.SubtaskTimeout != 30*time.Second {
		t.Errorf("expected subtask timeout 30s, got %v", cfg.Swarm.SubtaskTimeout)
	}

	if cfg.Swarm.TaskTimeout != 10*time.Minute {
		t.Errorf("expected task timeout 10m, got %v", cfg.Swarm.TaskTimeout)
	}

	if cfg.Swarm.VerificationEnabled {
		t.Error("expected verification_enabled to be false")
	}

	// Unset keys fall back to defaults
	if cfg.Swarm.VerificationThreshold != 0.6 {
		t.Errorf("expected default verification threshold 0.6, got %v", cfg.Swarm.VerificationThreshold)
	}

	if !cfg.Swarm.CriticEnabled {
		t.Error("expected critic_enabled to default to true")
	}

	if cfg.Rate.InputTPM != 40000 {
		t.Errorf("expected input_tpm 40000, got %d", cfg.Rate.InputTPM)
	}
}

func TestLoadFromPath_ExpandsAPIKeyEnv(t *testing.T) {
	os.Setenv("HIVE_TEST_KEY_VAR", "sk-ant-from-env")
	defer os.Unsetenv("HIVE_TEST_KEY_VAR")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := "anthropic:\n  api_key: ${HIVE_TEST_KEY_VAR}\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-from-env" {
		t.Errorf("expected expanded key, got %q", cfg.Anthropic.APIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := Default()
	cfg.Anthropic.Model = "claude-haiku-4"
	cfg.Swarm.MaxParallel = 7
	cfg.Swarm.SubtaskTimeout = 45 * time.Second
	cfg.Rate.OutputTPM = 12345

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if loaded.Anthropic.Model != "claude-haiku-4" {
		t.Errorf("expected model 'claude-haiku-4', got %q", loaded.Anthropic.Model)
	}
	if loaded.Swarm.MaxParallel != 7 {
		t.Errorf("expected max_parallel 7, got %d", loaded.Swarm.MaxParallel)
	}
	if loaded.Swarm.SubtaskTimeout != 45*time.Second {
		t.Errorf("expected subtask timeout 45s, got %v", loaded.Swarm.SubtaskTimeout)
	}
	if loaded.Rate.OutputTPM != 12345 {
		t.Errorf("expected output_tpm 12345, got %d", loaded.Rate.OutputTPM)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := filepath.Join("/custom/config", "hive")
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}

	if !strings.HasSuffix(GetUserConfigPath(), "config.yaml") {
		t.Errorf("GetUserConfigPath() = %q", GetUserConfigPath())
	}
}
