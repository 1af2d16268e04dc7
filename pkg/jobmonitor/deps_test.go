package jobmonitor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// finishedJob lays down a terminal .log (and optional .error) as a
// completed upstream job would leave them.
func finishedJob(t *testing.T, dir, name, errMsg string) string {
	t.Helper()
	logPath := filepath.Join(dir, name+".log")
	if err := os.WriteFile(logPath, []byte(`"`+name+`" started at 2026-08-24 10:00:00.`+"\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if errMsg != "" {
		if err := os.WriteFile(filepath.Join(dir, name+".error"), []byte(errMsg+"\n"), 0644); err != nil {
			t.Fatalf("write error report: %v", err)
		}
	}
	return logPath
}

func TestCheckError(t *testing.T) {
	dir := t.TempDir()
	clean := finishedJob(t, dir, "clean", "")
	failed := finishedJob(t, dir, "failed", "disk full")

	msg, found, err := CheckError(clean, ".log")
	if err != nil {
		t.Fatalf("CheckError(clean) error: %v", err)
	}
	if found || msg != "" {
		t.Fatalf("clean dependency reported failure: %q", msg)
	}

	msg, found, err = CheckError(failed, ".log")
	if err != nil {
		t.Fatalf("CheckError(failed) error: %v", err)
	}
	if !found {
		t.Fatalf("failed dependency not detected")
	}
	if !strings.Contains(msg, "disk full") {
		t.Fatalf("unexpected error text: %q", msg)
	}
}

func TestCheckError_EmptyReportStillCountsAsFailure(t *testing.T) {
	dir := t.TempDir()
	logPath := finishedJob(t, dir, "silent", "")
	if err := os.WriteFile(filepath.Join(dir, "silent.error"), nil, 0644); err != nil {
		t.Fatalf("write empty report: %v", err)
	}

	_, found, err := CheckError(logPath, ".log")
	if err != nil {
		t.Fatalf("CheckError() error: %v", err)
	}
	if !found {
		t.Fatalf("empty error report not treated as failure marker")
	}
}

func TestCheckDependency(t *testing.T) {
	dir := t.TempDir()
	clean := finishedJob(t, dir, "clean", "")
	failed := finishedJob(t, dir, "failed", "bad input")

	m, err := New(filepath.Join(dir, "downstream.log"), WithName("downstream"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := m.CheckDependency(clean); err != nil {
		t.Fatalf("clean dependency rejected: %v", err)
	}

	depErr := m.CheckDependency(failed)
	if depErr == nil {
		t.Fatalf("failed dependency accepted")
	}
	if FailureKind(depErr) != KindDependency {
		t.Fatalf("unexpected failure kind: %v", FailureKind(depErr))
	}
	for _, want := range []string{"downstream", "failed.log", "bad input"} {
		if !strings.Contains(depErr.Error(), want) {
			t.Fatalf("failure message missing %q: %v", want, depErr)
		}
	}
}

func TestCheckDependencies_FiltersAndFailsFast(t *testing.T) {
	dir := t.TempDir()
	clean := finishedJob(t, dir, "a", "")
	failed := finishedJob(t, dir, "b", "first failure")
	alsoFailed := finishedJob(t, dir, "c", "second failure")

	m, err := New(filepath.Join(dir, "downstream.log"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Non-log artifacts are skipped even when their base job failed.
	deps := []string{
		filepath.Join(dir, "b.bam"),
		clean,
		failed,
		alsoFailed,
	}
	depErr := m.CheckDependencies(deps)
	if depErr == nil {
		t.Fatalf("expected first failing dependency to stop the check")
	}
	if !strings.Contains(depErr.Error(), "first failure") {
		t.Fatalf("expected fail-fast on b.log, got: %v", depErr)
	}
	if strings.Contains(depErr.Error(), "second failure") {
		t.Fatalf("check did not stop at first failure: %v", depErr)
	}
}

func TestFailure_ErrorsIsMatching(t *testing.T) {
	err := newFailure(KindDependency, "job", "detail", nil)
	if !errors.Is(err, &Failure{Kind: KindDependency}) {
		t.Fatalf("errors.Is failed to match by kind")
	}
	if errors.Is(err, &Failure{Kind: KindSetup}) {
		t.Fatalf("errors.Is matched the wrong kind")
	}
}
