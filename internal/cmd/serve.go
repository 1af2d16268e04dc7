package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pipeforge/jobmon/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only HTTP view of the jobs directory",
	Long: `Start the status server.

Endpoints:
  GET /healthz          liveness probe
  GET /api/jobs         all job states in the configured jobs directory
  GET /api/jobs/{name}  one job's state, including its recorded error`,
	RunE: runServe,
}

var serveJobsDir string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveJobsDir, "jobs-dir", "", "Jobs directory to serve (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	jobsDir := serveJobsDir
	if jobsDir == "" {
		jobsDir = cfg.Jobs.Dir
	}

	srv := server.New(server.Options{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		JobsDir:   jobsDir,
		LogExt:    cfg.Jobs.LogExt,
		RateLimit: cfg.Server.RateLimit,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
