package jobmonitor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// maxOutputLineBytes bounds a single streamed stdout line.
const maxOutputLineBytes = 1024 * 1024

// RunOptions controls subprocess execution under a Monitor.
type RunOptions struct {
	// Dir is the working directory for the child process.
	Dir string
	// Env replaces the child environment when non-nil.
	Env []string
	// Timeout kills the child when exceeded. Expiry surfaces as a
	// timeout failure, distinct from a nonzero exit.
	Timeout time.Duration
	// FailOnError escalates a failed child as a job failure. When
	// false the failure is recorded via Error and the job continues.
	FailOnError bool
	// Live streams stdout into the log line-by-line as it is produced
	// instead of logging it once after completion.
	Live bool
}

// DefaultRunOptions returns the options Run assumes when callers have
// no overrides: escalate failures, buffered capture.
func DefaultRunOptions() RunOptions {
	return RunOptions{FailOnError: true}
}

// Run executes argv as a child process, logging the invocation and its
// stdout to the running file. Stderr is captured separately and carried
// as the failure detail when the child exits nonzero or times out.
func (m *Monitor) Run(ctx context.Context, argv []string, opts RunOptions) error {
	return m.run(ctx, argv, opts, nil)
}

// RunVerbose behaves like Run in live mode unconditionally, and also
// mirrors each stdout line to the monitor's console writer.
func (m *Monitor) RunVerbose(ctx context.Context, argv []string, opts RunOptions) error {
	opts.Live = true
	mirror := m.console
	if mirror == nil {
		mirror = os.Stdout
	}
	return m.run(ctx, argv, opts, mirror)
}

func (m *Monitor) run(ctx context.Context, argv []string, opts RunOptions, mirror io.Writer) error {
	if len(argv) == 0 {
		return newFailure(KindSubprocess, m.name, "empty command", nil)
	}

	m.Log(fmt.Sprintf("Running process `%s`", shellJoin(argv)))

	cancel := func() {}
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var runErr error
	if opts.Live {
		runErr = m.runStreaming(cmd, mirror)
	} else {
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		runErr = cmd.Run()
		if out := stdout.String(); out != "" {
			m.LogRaw(strings.TrimRight(out, "\n"))
		}
	}
	if runErr == nil {
		return nil
	}

	var fail *Failure
	if ctx.Err() == context.DeadlineExceeded {
		fail = newFailure(KindTimeout, m.name,
			fmt.Sprintf("process `%s` timed out after %s", argv[0], opts.Timeout), ctx.Err())
	} else {
		fail = newFailure(KindSubprocess, m.name, strings.TrimSpace(stderr.String()), runErr)
	}

	if opts.FailOnError {
		return fail
	}
	m.Error(fail.Error())
	return nil
}

// runStreaming drains the child's stdout line-by-line into the log as
// it is produced, then waits for the exit status. Single consumer, no
// buffering beyond the line being read.
func (m *Monitor) runStreaming(cmd *exec.Cmd, mirror io.Writer) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxOutputLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		m.Log(line)
		if mirror != nil {
			_, _ = fmt.Fprintln(mirror, line)
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if waitErr != nil {
		return waitErr
	}
	return scanErr
}

// shellJoin renders argv as a human-readable command line, quoting
// arguments that contain whitespace or shell metacharacters.
func shellJoin(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, a := range argv {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$&|;<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
