package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipeforge/jobmon/pkg/jobmonitor"
	"github.com/pipeforge/jobmon/pkg/jobresult"
	"github.com/pipeforge/jobmon/pkg/manifest"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [-- COMMAND [ARGS...]]",
	Short: "Run a command under job lifecycle monitoring",
	Long: `Run a command as a monitored job.

The job is described either by a manifest (--job) or by flags plus the
command after "--". Dependencies are checked before the run starts: if
any upstream log has a sibling .error file the job fails immediately.

Example:
  jobmon run --job align.yaml
  jobmon run --log out/align.log --name align -- bwa mem ref.fa reads.fq
  jobmon run --log out/report.log --dep 'out/**/*.log' -- ./report.sh`,
	RunE: runRun,
}

var (
	runJobPath   string
	runLogPath   string
	runName      string
	runResults   string
	runDir       string
	runTimeout   time.Duration
	runLive      bool
	runVerbose   bool
	runKeepGoing bool
	runDeps      []string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runJobPath, "job", "j", "", "Path to job manifest (YAML or JSON)")
	runCmd.Flags().StringVarP(&runLogPath, "log", "l", "", "Job log path (must end in the log extension)")
	runCmd.Flags().StringVarP(&runName, "name", "n", "", "Job name for banner and failure messages")
	runCmd.Flags().StringVar(&runResults, "results", "", "Result prefix pattern recorded in the log banner")
	runCmd.Flags().StringVar(&runDir, "dir", "", "Working directory for the command")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Kill the command after this duration")
	runCmd.Flags().BoolVar(&runLive, "live", false, "Stream command stdout into the log as it is produced")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Live mode plus mirroring output to the console")
	runCmd.Flags().BoolVar(&runKeepGoing, "keep-going", false, "Record a failed command instead of failing the job")
	runCmd.Flags().StringArrayVar(&runDeps, "dep", nil, "Upstream log path or glob (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	runID := uuid.New().String()
	diag := logger.With(zap.String("run_id", runID))

	var (
		argv    []string
		logPath string
		name    string
		results string
		deps    []string
		logExt  = cfg.Jobs.LogExt
		opts    = jobmonitor.DefaultRunOptions()
	)

	if runJobPath != "" {
		mf, err := manifest.Load(runJobPath)
		if err != nil {
			return err
		}
		argv = mf.Command
		logPath = mf.Log
		name = mf.Name
		deps = mf.Dependencies
		logExt = mf.LogExt
		opts.Dir = mf.Dir
		opts.Env = mf.Environ(os.Environ())
		opts.Timeout = mf.TimeoutDuration()
		opts.Live = mf.Live
		opts.FailOnError = *mf.FailOnError
		if mf.Results != "" {
			results = jobresult.NewFromPattern(mf.Results).Prefix()
		}
	} else {
		if runLogPath == "" {
			return fmt.Errorf("either --job or --log is required")
		}
		argv = args
		logPath = runLogPath
		name = runName
		deps = runDeps
		opts.Dir = runDir
		opts.Timeout = runTimeout
		opts.Live = runLive
		opts.FailOnError = !runKeepGoing
		if runResults != "" {
			results = jobresult.NewFromPattern(runResults).Prefix()
		}
	}
	if len(argv) == 0 {
		return fmt.Errorf("no command specified (expected after --)")
	}
	if name == "" {
		name = "Job"
	}
	if opts.Timeout == 0 {
		opts.Timeout = cfg.Run.DefaultTimeout
	}

	monOpts := []jobmonitor.Option{
		jobmonitor.WithName(name),
		jobmonitor.WithLogger(diag),
		jobmonitor.WithLogExt(logExt),
		jobmonitor.WithConsole(jobmonitor.NewConsole(cmd.OutOrStdout(), name)),
	}
	if results != "" {
		monOpts = append(monOpts, jobmonitor.WithResults(results))
	}
	mon, err := jobmonitor.New(logPath, monOpts...)
	if err != nil {
		return err
	}

	expanded, err := expandDependencies(deps)
	if err != nil {
		return err
	}
	if err := mon.CheckDependencies(expanded); err != nil {
		diag.Error("dependency check failed", zap.Error(err))
		return err
	}

	diag.Info("starting job",
		zap.String("job", name),
		zap.String("log", logPath),
		zap.Strings("command", argv))

	runErr := mon.Do(func(m *jobmonitor.Monitor) error {
		if runVerbose {
			return m.RunVerbose(cmd.Context(), argv, opts)
		}
		return m.Run(cmd.Context(), argv, opts)
	})
	if runErr != nil {
		diag.Error("job failed",
			zap.String("job", name),
			zap.String("kind", string(jobmonitor.FailureKind(runErr))),
			zap.Error(runErr))
		return runErr
	}

	diag.Info("job completed", zap.String("job", name))
	return nil
}

// expandDependencies resolves doublestar globs in a dependency list.
// Literal paths pass through untouched so a missing dependency log is
// still visible to the order-preserving check rather than silently
// dropped by globbing.
func expandDependencies(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[{") {
			out = append(out, p)
			continue
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid dependency pattern %q: %w", p, err)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}
