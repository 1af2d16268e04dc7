// Package cmd implements the jobmon command-line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipeforge/jobmon/internal/config"
	"github.com/pipeforge/jobmon/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zap.NewNop()

	versionInfo = struct {
		Version   string
		Commit    string
		BuildDate string
	}{
		Version:   "dev",
		Commit:    "HEAD",
		BuildDate: "unknown",
	}
)

var rootCmd = &cobra.Command{
	Use:   "jobmon",
	Short: "Per-job lifecycle bookkeeping for batch pipelines",
	Long: `jobmon tracks the lifecycle of a single batch-pipeline job in a
durable log file. While a job runs its log carries the extension
.running; on completion the extension returns to .log, and a failed run
additionally leaves a sibling .error file. Downstream jobs check that
file to refuse to run after a failed prerequisite.

jobmon is the unit of bookkeeping an external workflow orchestrator
uses per job; it does not schedule, retry, or coordinate jobs itself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger, err = observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default: ./jobmon.yaml)")
}

// SetVersionInfo wires build-time version metadata into the CLI.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = version
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}
