// Package jobresult resolves a job's logical result names to concrete
// file and folder paths, and reads back structured output.
//
// A Result is anchored on a prefix: either a plain folder path (with a
// trailing separator) or a folder plus filename stem such as
// "/data/case_". Logical names concatenate against the prefix, so
// File("out.txt") on that prefix yields "/data/case_out.txt".
package jobresult

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pipeforge/jobmon/pkg/jobmonitor"
)

// trailingWildcard matches one wildcard group (or a bare star) at the
// end of a user-supplied result pattern.
var trailingWildcard = regexp.MustCompile(`(\{[^{}]*\}|\*)$`)

// Result addresses a job's output files under a common prefix.
type Result struct {
	prefix  string
	logPath string
	mkdirs  bool
}

// Option configures a Result.
type Option func(*Result)

// WithMkdirs makes File create the parent directory of each resolved
// path before returning it.
func WithMkdirs() Option {
	return func(r *Result) { r.mkdirs = true }
}

// WithLog associates the job's log path, enabling ErrorText and Success.
func WithLog(logPath string) Option {
	return func(r *Result) { r.logPath = logPath }
}

// New creates a Result with an explicit prefix.
func New(prefix string, opts ...Option) *Result {
	r := &Result{prefix: prefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromPattern derives the prefix by stripping one trailing wildcard
// marker from a user-supplied pattern, e.g. "/data/case_{sample}" or
// "/data/case_*" both yield the prefix "/data/case_".
func NewFromPattern(pattern string, opts ...Option) *Result {
	return New(trailingWildcard.ReplaceAllString(pattern, ""), opts...)
}

// FromLog recovers the result prefix from an existing log file. By
// provenance convention line 1 is the start banner and line 2 records
// the result location.
func FromLog(logPath string, opts ...Option) (*Result, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for i := 0; i < 2; i++ {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("read job log: %w", err)
			}
			return nil, fmt.Errorf("job log %s has no result location line", logPath)
		}
	}
	line := scanner.Text()
	if !strings.HasPrefix(line, jobmonitor.ResultsLinePrefix) {
		return nil, fmt.Errorf("job log %s has no result location line", logPath)
	}

	opts = append(opts, WithLog(logPath))
	return New(strings.TrimPrefix(line, jobmonitor.ResultsLinePrefix), opts...), nil
}

// Prefix returns the raw result prefix.
func (r *Result) Prefix() string { return r.prefix }

// File resolves a result path. With no segments it returns the prefix
// itself. The first segment concatenates directly onto the prefix;
// further segments are joined beneath it as path components, so
// File("step1", "out.txt") yields "<prefix>step1/out.txt".
func (r *Result) File(segments ...string) (string, error) {
	path := r.prefix
	if len(segments) > 0 {
		path += segments[0]
		if len(segments) > 1 {
			path = filepath.Join(append([]string{path}, segments[1:]...)...)
		}
	}
	if r.mkdirs {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", fmt.Errorf("create result dir: %w", err)
			}
		}
	}
	return path, nil
}

// Folder returns the directory portion of File(segments...).
func (r *Result) Folder(segments ...string) (string, error) {
	path, err := r.File(segments...)
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// ParseJSON reads the resolved result file and decodes it into v.
// Invalid content is a format failure.
func (r *Result) ParseJSON(v any, segments ...string) error {
	path, err := r.File(segments...)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read result file: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return &jobmonitor.Failure{
			Kind:   jobmonitor.KindFormat,
			Detail: fmt.Sprintf("result file %s is not valid JSON", path),
			Err:    err,
		}
	}
	return nil
}

// ErrorText returns the failure report co-located with the job log, and
// whether one exists.
func (r *Result) ErrorText() (string, bool, error) {
	errPath, err := r.errorPath()
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(errPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read error report: %w", err)
	}
	return string(b), true, nil
}

// Success reports whether the job's last run left no error report.
func (r *Result) Success() (bool, error) {
	_, failed, err := r.ErrorText()
	if err != nil {
		return false, err
	}
	return !failed, nil
}

func (r *Result) errorPath() (string, error) {
	if r.logPath == "" {
		return "", fmt.Errorf("result has no associated job log")
	}
	ext := filepath.Ext(r.logPath)
	return strings.TrimSuffix(r.logPath, ext) + ".error", nil
}
