// Package jobmonitor tracks the lifecycle of a single batch-pipeline job
// in a durable log file.
//
// A job's log file must carry the configured log extension (".log" by
// default). While the job runs the extension is changed to ".running";
// on completion it is changed back to ".log" even when the run fails.
// In that case the failure message is also written to a sibling file
// with the extension ".error". The presence of that file is the signal
// downstream jobs use to refuse to run.
package jobmonitor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultLogExt is the terminal log extension jobs use when not running.
	DefaultLogExt = ".log"

	runningExt = ".running"
	errorExt   = ".error"

	// ResultsLinePrefix marks the provenance line (line 2 of the banner)
	// that records the job's result location. jobresult.FromLog reads it.
	ResultsLinePrefix = "Results: "

	startTimeLayout = "2006-01-02 15:04:05"
)

// Monitor owns one job's lifecycle bookkeeping.
//
// A Monitor is not safe for concurrent use; the design assumes exactly
// one active writer per base path at a time.
type Monitor struct {
	base    string // log path without extension
	logExt  string
	name    string
	results string
	console io.Writer
	logger  *zap.Logger

	start   time.Time
	running bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithName sets the job name used in banner and failure messages.
func WithName(name string) Option {
	return func(m *Monitor) { m.name = name }
}

// WithLogger attaches a diagnostic sink for the monitor's own
// bookkeeping errors. Job output never goes through it.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithResults records the job's result-location prefix in the banner.
func WithResults(prefix string) Option {
	return func(m *Monitor) { m.results = prefix }
}

// WithConsole sets the mirror writer used by RunVerbose.
func WithConsole(w io.Writer) Option {
	return func(m *Monitor) { m.console = w }
}

// WithLogExt overrides the terminal log extension.
func WithLogExt(ext string) Option {
	return func(m *Monitor) { m.logExt = ext }
}

// New creates a Monitor for the given log file path. The path must end
// in the configured log extension.
func New(logFile string, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		logExt: DefaultLogExt,
		name:   "Job",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	logFile = strings.TrimSpace(logFile)
	if logFile == "" {
		return nil, fmt.Errorf("job log file path is required")
	}
	if !strings.HasSuffix(logFile, m.logExt) {
		return nil, fmt.Errorf("job log file %q must have the extension %q", logFile, m.logExt)
	}
	m.base = strings.TrimSuffix(logFile, m.logExt)
	return m, nil
}

// Name returns the job name.
func (m *Monitor) Name() string { return m.name }

// LogPath returns the terminal log path.
func (m *Monitor) LogPath() string { return m.base + m.logExt }

// RunningPath returns the transient path used while the job executes.
func (m *Monitor) RunningPath() string { return m.base + runningExt }

// ErrorPath returns the co-located failure-report path.
func (m *Monitor) ErrorPath() string { return m.base + errorExt }

// Elapsed returns the time since Begin.
func (m *Monitor) Elapsed() time.Duration { return time.Since(m.start) }

// Begin enters the run: it captures the start time, creates parent
// directories, writes the banner to the running file, and removes a
// stale error report from a previous failed run. Any error here is a
// setup failure and must abort the job.
func (m *Monitor) Begin() error {
	m.start = time.Now()

	if dir := filepath.Dir(m.base); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return newFailure(KindSetup, m.name, "create log dir", err)
		}
	}

	banner := fmt.Sprintf("%q started at %s.\n", m.name, m.start.Format(startTimeLayout))
	if m.results != "" {
		banner += ResultsLinePrefix + m.results + "\n"
	}
	if err := os.WriteFile(m.RunningPath(), []byte(banner), 0644); err != nil {
		return newFailure(KindSetup, m.name, "create running log", err)
	}

	// A failure report from a previous run must not leak into this
	// attempt. Removed only after the new run file exists.
	if err := os.Remove(m.ErrorPath()); err != nil && !os.IsNotExist(err) {
		return newFailure(KindSetup, m.name, "remove stale error report", err)
	}

	m.running = true
	m.logger.Debug("job started",
		zap.String("job", m.name),
		zap.String("log", m.RunningPath()))
	return nil
}

// End exits the run and finalizes the log state. A nil runErr records
// completion; anything else records failure and writes the error
// report. The running file is renamed back to the log extension on
// every path. End never fails: callers rely on it as a finalizer, so
// secondary errors go to the diagnostic sink only.
func (m *Monitor) End(runErr error) {
	if !m.running {
		return
	}
	elapsed := formatElapsed(m.Elapsed())

	if runErr == nil {
		m.Log(fmt.Sprintf("%q completed in %s hh:mm:ss.", m.name, elapsed))
	} else {
		m.Log(fmt.Sprintf("%q failed after %s hh:mm:ss.", m.name, elapsed))
		m.Error(fmt.Sprintf("%+v", runErr))
	}

	if err := os.Rename(m.RunningPath(), m.LogPath()); err != nil {
		m.logger.Error("finalize job log",
			zap.String("job", m.name),
			zap.Error(err))
	}
	m.running = false
}

// Do runs fn inside a Begin/End scope. A panic inside fn is recovered
// into a run failure so the rename still happens; the failure is then
// returned rather than re-raised.
func (m *Monitor) Do(fn func(*Monitor) error) (err error) {
	if begErr := m.Begin(); begErr != nil {
		return begErr
	}
	defer func() {
		if r := recover(); r != nil {
			err = newFailure(KindRun, m.name, fmt.Sprintf("panic: %v", r), nil)
		}
		m.End(err)
	}()
	err = fn(m)
	if err != nil && FailureKind(err) == "" {
		err = newFailure(KindRun, m.name, "", err)
	}
	return err
}

// Log appends one line to the running file, prefixed with the elapsed
// time since Begin. Each call opens, appends, and closes the file so
// external readers never hold a torn handle open alongside ours.
func (m *Monitor) Log(msg string) {
	m.appendLine(fmt.Sprintf("[%s] %s", formatElapsed(m.Elapsed()), msg))
}

// LogRaw appends msg without a timestamp prefix. Used for raw blocks
// such as captured subprocess stdout.
func (m *Monitor) LogRaw(msg string) {
	m.appendLine(msg)
}

// Error records a failure message: an untimestamped line in the running
// log, plus an append to the error report file. Repeated calls within
// one run accumulate in order.
func (m *Monitor) Error(msg string) {
	m.appendLine("Error message: " + msg)
	if err := appendFile(m.ErrorPath(), msg+"\n"); err != nil {
		m.logger.Error("write error report",
			zap.String("job", m.name),
			zap.Error(err))
	}
}

func (m *Monitor) appendLine(line string) {
	if err := appendFile(m.RunningPath(), line+"\n"); err != nil {
		m.logger.Error("append job log",
			zap.String("job", m.name),
			zap.Error(err))
	}
}

func appendFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// formatElapsed renders a duration as hh:mm:ss.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	sec := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, min, sec)
}
