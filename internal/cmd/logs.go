package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipeforge/jobmon/pkg/jobmonitor"
)

var logsCmd = &cobra.Command{
	Use:   "logs <log>",
	Short: "Print a job's log",
	Long: `Print a job's log file.

If the job is still running, its .running file is read instead of the
terminal log, so live progress is visible. --errors prints the .error
report of a failed run.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

var (
	logsTail   int
	logsFollow bool
	logsErrors bool
)

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVar(&logsTail, "tail", 0, "Show last N lines (0 = all)")
	logsCmd.Flags().BoolVar(&logsFollow, "follow", false, "Follow log output")
	logsCmd.Flags().BoolVar(&logsErrors, "errors", false, "Print the error report instead of the log")
}

func runLogs(cmd *cobra.Command, args []string) error {
	logPath := strings.TrimSpace(args[0])
	if logPath == "" {
		return fmt.Errorf("log path is required")
	}
	logExt := cfg.Jobs.LogExt
	// A .running argument names the same job as its terminal log.
	if strings.HasSuffix(logPath, ".running") {
		logPath = strings.TrimSuffix(logPath, ".running") + logExt
	}
	if !strings.HasSuffix(logPath, logExt) {
		logPath += logExt
	}
	base := strings.TrimSuffix(logPath, logExt)

	if logsErrors {
		return printWholeFile(cmd.OutOrStdout(), jobmonitor.ErrorReportPath(logPath, logExt))
	}

	// Prefer the transient running file so a live job's progress shows.
	path := logPath
	if _, err := os.Stat(base + ".running"); err == nil {
		path = base + ".running"
	}

	if logsFollow {
		return followLog(cmd.OutOrStdout(), path)
	}
	return printLogTail(cmd.OutOrStdout(), path, logsTail)
}

func printWholeFile(out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(out, f)
	return err
}

func printLogTail(out io.Writer, path string, tailN int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if tailN <= 0 {
		_, err := io.Copy(out, f)
		return err
	}

	lines, err := tailLines(f, tailN)
	if err != nil {
		return err
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}

func tailLines(r io.Reader, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	scanner := bufio.NewScanner(r)
	buf := make([]string, 0, n)

	for scanner.Scan() {
		line := scanner.Text()
		if len(buf) < n {
			buf = append(buf, line)
			continue
		}
		copy(buf, buf[1:])
		buf[n-1] = line
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

func followLog(out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// Read by newline-terminated lines, holding back a torn final line
	// until its newline arrives so a line caught mid-write is never
	// printed split in two. Stat the path rather than the open handle:
	// the running file is renamed to .log when the job ends, and its
	// disappearance means end of stream.
	r := bufio.NewReader(f)
	var partial strings.Builder
	for {
		chunk, err := r.ReadString('\n')
		partial.WriteString(chunk)
		if err == nil {
			_, _ = fmt.Fprint(out, partial.String())
			partial.Reset()
			continue
		}
		if err != io.EOF {
			return err
		}
		if _, statErr := os.Stat(path); statErr != nil {
			if os.IsNotExist(statErr) {
				if partial.Len() > 0 {
					_, _ = fmt.Fprintln(out, partial.String())
				}
				return nil
			}
			return statErr
		}
		time.Sleep(250 * time.Millisecond)
	}
}
