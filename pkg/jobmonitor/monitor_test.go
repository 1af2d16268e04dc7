package jobmonitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew_RequiresLogExtension(t *testing.T) {
	if _, err := New("job.txt"); err == nil {
		t.Fatalf("expected error for wrong extension")
	}
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	m, err := New("job.out", WithLogExt(".out"))
	if err != nil {
		t.Fatalf("New() with custom extension: %v", err)
	}
	if m.LogPath() != "job.out" {
		t.Fatalf("unexpected log path: %q", m.LogPath())
	}
}

func TestMonitor_SuccessLeavesCleanLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out", "job.log")
	m, err := New(logPath, WithName("demo"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if _, err := os.Stat(m.RunningPath()); err != nil {
		t.Fatalf("running file missing after Begin: %v", err)
	}
	m.Log("working")
	m.End(nil)

	if _, err := os.Stat(m.RunningPath()); !os.IsNotExist(err) {
		t.Fatalf("running file still present after End")
	}
	if _, err := os.Stat(m.ErrorPath()); !os.IsNotExist(err) {
		t.Fatalf("error report present after successful run")
	}

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(b)
	if !strings.HasPrefix(content, `"demo" started at `) {
		t.Fatalf("missing banner, got: %q", content)
	}
	if !strings.Contains(content, "working") {
		t.Fatalf("missing progress line, got: %q", content)
	}
	if !strings.Contains(content, `"demo" completed in `) {
		t.Fatalf("missing completion line, got: %q", content)
	}
}

func TestMonitor_FailureWritesErrorReport(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	m, err := New(logPath, WithName("demo"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	m.End(errors.New("step 3 exploded"))

	if _, err := os.Stat(m.RunningPath()); !os.IsNotExist(err) {
		t.Fatalf("running file still present after End")
	}

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"demo" failed after `) {
		t.Fatalf("missing failure line, got: %q", string(b))
	}
	if !strings.Contains(string(b), "Error message: step 3 exploded") {
		t.Fatalf("missing error line, got: %q", string(b))
	}

	report, err := os.ReadFile(m.ErrorPath())
	if err != nil {
		t.Fatalf("read error report: %v", err)
	}
	if !strings.Contains(string(report), "step 3 exploded") {
		t.Fatalf("error report missing message: %q", string(report))
	}
}

func TestMonitor_StaleErrorRemovedOnBegin(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	m, err := New(logPath)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// First run fails.
	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	m.End(errors.New("old failure"))
	if _, err := os.Stat(m.ErrorPath()); err != nil {
		t.Fatalf("first run left no error report: %v", err)
	}

	// Second run succeeds; the stale report must be gone.
	if err := m.Begin(); err != nil {
		t.Fatalf("second Begin() error: %v", err)
	}
	if _, err := os.Stat(m.ErrorPath()); !os.IsNotExist(err) {
		t.Fatalf("stale error report survived Begin")
	}
	m.End(nil)
	if _, err := os.Stat(m.ErrorPath()); !os.IsNotExist(err) {
		t.Fatalf("error report present after clean second run")
	}
}

func TestMonitor_FreshFailureReplacesStaleReport(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	m, err := New(logPath)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	m.End(errors.New("old failure"))

	if err := m.Begin(); err != nil {
		t.Fatalf("second Begin() error: %v", err)
	}
	m.End(errors.New("new failure"))

	report, err := os.ReadFile(m.ErrorPath())
	if err != nil {
		t.Fatalf("read error report: %v", err)
	}
	if strings.Contains(string(report), "old failure") {
		t.Fatalf("stale failure leaked into fresh report: %q", string(report))
	}
	if !strings.Contains(string(report), "new failure") {
		t.Fatalf("fresh failure missing from report: %q", string(report))
	}
}

func TestMonitor_ErrorCallsAccumulateWithinRun(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	m, err := New(logPath)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	m.Error("first problem")
	m.Error("second problem")
	m.End(errors.New("run failed"))

	report, err := os.ReadFile(m.ErrorPath())
	if err != nil {
		t.Fatalf("read error report: %v", err)
	}
	first := strings.Index(string(report), "first problem")
	second := strings.Index(string(report), "second problem")
	if first < 0 || second < 0 {
		t.Fatalf("accumulated messages missing: %q", string(report))
	}
	if first > second {
		t.Fatalf("messages out of order: %q", string(report))
	}
}

func TestMonitor_BannerRecordsResultsLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	m, err := New(logPath, WithResults("/data/case_"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	m.End(nil)

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(string(b), "\n")
	if len(lines) < 2 || lines[1] != ResultsLinePrefix+"/data/case_" {
		t.Fatalf("line 2 does not record result location: %q", lines)
	}
}

func TestMonitor_DoRecoversPanicAndFinalizes(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	m, err := New(logPath, WithName("panicky"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	doErr := m.Do(func(*Monitor) error {
		panic("boom")
	})
	if doErr == nil {
		t.Fatalf("Do() swallowed the panic")
	}
	if FailureKind(doErr) != KindRun {
		t.Fatalf("unexpected failure kind: %v", FailureKind(doErr))
	}

	if _, err := os.Stat(m.RunningPath()); !os.IsNotExist(err) {
		t.Fatalf("running file not finalized after panic")
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("terminal log missing after panic: %v", err)
	}
	if _, err := os.Stat(m.ErrorPath()); err != nil {
		t.Fatalf("error report missing after panic: %v", err)
	}
}

func TestMonitor_DoWrapsPlainErrors(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	m, err := New(logPath)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	doErr := m.Do(func(*Monitor) error {
		return fmt.Errorf("plain failure")
	})
	if FailureKind(doErr) != KindRun {
		t.Fatalf("plain error not tagged as run failure: %v", doErr)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Second, "00:01:01"},
		{3661 * time.Second, "01:01:01"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Fatalf("formatElapsed(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
