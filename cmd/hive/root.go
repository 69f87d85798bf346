package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hive",
	Short: "Task orchestration engine for Claude agents",
	Long: `Hive decomposes natural-language instructions into dependency-ordered
subtasks and dispatches them to role-bound Claude agents in parallel.

Core capabilities:
- Plans instructions into a subtask dependency graph
- Dispatches ready subtasks concurrently under a shared token rate gate
- Verifies each result and retries with corrective strategies
- Streams ordered progress events while the task runs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
