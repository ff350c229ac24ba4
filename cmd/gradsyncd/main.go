// main.go - CLI entrypoint for the gradsync engine daemon
// Main functions: main, newRootCmd, appendEnvDocs
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gradsync/gradsync/envconfig"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// appendEnvDocs appends an "Environment Variables" block to cmd's usage
// template listing the given envs.
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := "\nEnvironment Variables:\n"
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// newRootCmd assembles the gradsyncd command tree.
func newRootCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "gradsyncd",
		Short:         "Distributed-training gradient synchronization engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := newRunCmd()
	statusCmd := newStatusCmd()

	envVars := envconfig.AsMap()
	appendEnvDocs(runCmd, []envconfig.EnvVar{
		envVars["GRADSYNC_DEBUG"],
		envVars["GRADSYNC_LOCAL_SIZE"],
		envVars["GRADSYNC_LOCAL_RANK"],
		envVars["GRADSYNC_RANK"],
		envVars["GRADSYNC_SIZE"],
		envVars["GRADSYNC_WORKER_ID"],
		envVars["GRADSYNC_DISTRIBUTED"],
		envVars["GRADSYNC_PARTITION_BOUND"],
		envVars["GRADSYNC_GROUP_SIZE"],
		envVars["GRADSYNC_DEVICE_ID"],
		envVars["GRADSYNC_POOL_SIZE"],
		envVars["GRADSYNC_CREDIT_LIMIT"],
		envVars["GRADSYNC_HTTP_ADDR"],
		envVars["GRADSYNC_ALLOWED_HOSTS"],
	})
	appendEnvDocs(statusCmd, []envconfig.EnvVar{envVars["GRADSYNC_HTTP_ADDR"]})

	rootCmd.AddCommand(runCmd, statusCmd)
	return rootCmd
}

// newLogger builds the process-wide slog.Logger at the configured level,
// matching the teacher's plain text-handler-to-stderr convention.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: envconfig.LogLevel(),
	}))
}
