package main

import (
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelworks/hive/internal/action"
	"github.com/kestrelworks/hive/internal/api"
	"github.com/kestrelworks/hive/internal/config"
	"github.com/kestrelworks/hive/internal/signal"
	"github.com/kestrelworks/hive/internal/swarm"
)

var (
	runNoVerify   bool
	runParallel   int
	runRetries    int
	runTimeout    time.Duration
	runAllowShell bool
)

var runCmd = &cobra.Command{
	Use:   "run \"<instruction>\"",
	Short: "Run an instruction to completion",
	Long: `Run a natural-language instruction.

The instruction is decomposed into a dependency graph of subtasks, each
dispatched to a role-bound agent. Progress events stream to stdout until
the task reaches a terminal state.

A stop signal ('hive stop' from another terminal, or Ctrl-C) cancels the
task gracefully. 'hive pause' holds back new subtasks until 'hive resume'.

Examples:
  hive run "open Safari"
  hive run "research Go concurrency patterns and summarize them"
  hive run --no-verify --parallel 5 "organize my downloads folder"`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().BoolVar(&runNoVerify, "no-verify", false, "Skip verification of subtask results")
	runCmd.Flags().IntVar(&runParallel, "parallel", 0, "Max concurrent subtasks (0 = use config)")
	runCmd.Flags().IntVar(&runRetries, "retries", -1, "Per-subtask retry budget (-1 = use config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Task wall-clock limit (0 = use config)")
	runCmd.Flags().BoolVar(&runAllowShell, "allow-shell", false, "Let executor agents run local shell commands")
}

func runTask(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	clientCfg := api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	}
	if !cfg.Anthropic.UseAWSBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return fmt.Errorf("%w\n\nSet it with:\n  export ANTHROPIC_API_KEY=your-key-here\nor:\n  hive config anthropic.api_key your-key-here", err)
		}
		clientCfg.APIKey = key
	}

	client, err := api.NewClient(clientCfg)
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}

	swarmCfg := swarmConfigFrom(cfg, cmd)
	s := swarm.New(client, swarmCfg)
	defer s.Stop()

	taskID, err := s.Submit(args[0])
	if err != nil {
		return err
	}

	// Cancel on Ctrl-C or an out-of-band stop signal.
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	sigMgr, err := signal.NewManager(cwd)
	if err != nil {
		return fmt.Errorf("creating signal manager: %w", err)
	}
	defer sigMgr.Close()
	sigMgr.Clear()

	interrupt := make(chan os.Signal, 1)
	ossignal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer ossignal.Stop(interrupt)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		paused := false
		for {
			select {
			case <-done:
				return
			case <-interrupt:
				fmt.Println()
				color.Yellow("Cancelling...")
				s.Cancel(taskID)
			case <-ticker.C:
				if sigMgr.ShouldStop() {
					color.Yellow("Stop signal received, cancelling...")
					s.Cancel(taskID)
				}
				if p := sigMgr.ShouldPause(); p != paused {
					paused = p
					if p {
						color.Yellow("Pause signal received, holding new subtasks...")
						s.Pause(taskID)
					} else {
						color.Yellow("Resuming...")
						s.Resume(taskID)
					}
				}
			}
		}
	}()

	success := tailEvents(s, taskID)

	printRunSummary(s, taskID)
	if !success {
		return fmt.Errorf("task did not complete")
	}
	return nil
}

// swarmConfigFrom maps the loaded config onto swarm settings, with
// command-line flags taking precedence.
func swarmConfigFrom(cfg *config.Config, cmd *cobra.Command) swarm.Config {
	sc := swarm.Config{
		MaxParallel:           cfg.Swarm.MaxParallel,
		MaxRetries:            cfg.Swarm.MaxRetries,
		SubtaskTimeout:        cfg.Swarm.SubtaskTimeout,
		TaskTimeout:           cfg.Swarm.TaskTimeout,
		VerificationEnabled:   cfg.Swarm.VerificationEnabled,
		VerificationThreshold: cfg.Swarm.VerificationThreshold,
		CriticEnabled:         cfg.Swarm.CriticEnabled,
		InputTPM:              cfg.Rate.InputTPM,
		OutputTPM:             cfg.Rate.OutputTPM,
	}
	if runNoVerify {
		sc.VerificationEnabled = false
	}
	if runParallel > 0 {
		sc.MaxParallel = runParallel
	}
	if cmd.Flags().Changed("retries") && runRetries >= 0 {
		sc.MaxRetries = runRetries
	}
	if runTimeout > 0 {
		sc.TaskTimeout = runTimeout
	}
	if runAllowShell {
		sc.Performer = action.NewShellPerformer()
	}
	return sc
}

// tailEvents prints this task's events until it reaches a terminal state.
// Returns whether the task completed successfully.
func tailEvents(s *swarm.Swarm, taskID string) bool {
	for ev := range s.Events() {
		if ev.TaskID != taskID {
			continue
		}
		printEvent(ev)
		if ev.Type == swarm.EventTaskCompleted {
			return ev.Success
		}
	}
	// Stream closed without a terminal event.
	return false
}

func printEvent(ev swarm.SwarmEvent) {
	switch ev.Type {
	case swarm.EventTaskStarted:
		fmt.Printf("%s %s\n", color.New(color.Bold).Sprint("Task:"), ev.Description)
	case swarm.EventSubtaskStarted:
		fmt.Printf("  %s [%s] %s\n", color.CyanString("→"), ev.AgentType, shortID(ev.SubtaskID))
	case swarm.EventVerification:
		mark := color.GreenString("✓")
		if !ev.Passed {
			mark = color.YellowString("⚠")
		}
		fmt.Printf("  %s verify %s score %.2f\n", mark, shortID(ev.SubtaskID), ev.Score)
	case swarm.EventRecovery:
		fmt.Printf("  %s retry %s (%s)\n", color.YellowString("↻"), shortID(ev.SubtaskID), ev.Strategy)
	case swarm.EventSubtaskCompleted:
		fmt.Printf("  %s %s\n", color.GreenString("✓"), shortID(ev.SubtaskID))
	case swarm.EventSubtaskFailed:
		fmt.Printf("  %s %s: %s\n", color.RedString("✗"), shortID(ev.SubtaskID), ev.Error)
	case swarm.EventTaskCompleted:
		if ev.Success {
			fmt.Printf("%s\n", color.GreenString("Task completed"))
		} else {
			fmt.Printf("%s\n", color.RedString("Task failed"))
		}
	}
}

// printRunSummary shows the final task summary and token usage.
func printRunSummary(s *swarm.Swarm, taskID string) {
	task, err := s.Status(taskID)
	if err != nil {
		return
	}

	if task.Summary != "" {
		fmt.Printf("\n%s\n", task.Summary)
	}
	if task.Review != "" {
		fmt.Printf("\n%s\n%s\n", color.New(color.Bold).Sprint("Critic review:"), task.Review)
	}
	if task.Error != "" {
		fmt.Printf("%s %s\n", color.RedString("Error:"), task.Error)
	}

	stats := s.Gate().Snapshot()
	fmt.Printf("\nTokens: %s in / %s out\n",
		formatNumber(stats.TotalInput),
		formatNumber(stats.TotalOutput))
	if !task.CreatedAt.IsZero() && task.CompletedAt != nil {
		fmt.Printf("Duration: %s\n", formatDuration(task.CompletedAt.Sub(task.CreatedAt)))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running task in this directory to stop",
	Long: `Write a stop signal for the hive process running in this directory.

The running 'hive run' polls for the signal and cancels its task.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		m, err := signal.NewManager(cwd)
		if err != nil {
			return fmt.Errorf("creating signal manager: %w", err)
		}
		defer m.Close()

		if err := m.SendStop(); err != nil {
			return fmt.Errorf("sending stop signal: %w", err)
		}
		fmt.Println("Stop signal sent.")
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the task running in this directory",
	Long: `Write a pause signal for the hive process running in this directory.

The running 'hive run' stops dispatching new subtasks; in-flight subtasks
finish normally. Use 'hive resume' to continue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		m, err := signal.NewManager(cwd)
		if err != nil {
			return fmt.Errorf("creating signal manager: %w", err)
		}
		defer m.Close()

		if err := m.SendPause(); err != nil {
			return fmt.Errorf("sending pause signal: %w", err)
		}
		fmt.Println("Pause signal sent. Use 'hive resume' to continue.")
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused task in this directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		m, err := signal.NewManager(cwd)
		if err != nil {
			return fmt.Errorf("creating signal manager: %w", err)
		}
		defer m.Close()

		m.ClearPause()
		fmt.Println("Resume signal sent.")
		return nil
	},
}
