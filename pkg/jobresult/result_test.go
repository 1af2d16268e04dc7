package jobresult

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pipeforge/jobmon/pkg/jobmonitor"
)

func TestResult_FileResolution(t *testing.T) {
	r := New("/d/case_")

	got, err := r.File()
	if err != nil || got != "/d/case_" {
		t.Fatalf("File() = %q, %v", got, err)
	}
	got, err = r.File("out.txt")
	if err != nil || got != "/d/case_out.txt" {
		t.Fatalf("File(out.txt) = %q, %v", got, err)
	}
	got, err = r.File("step1", "out.txt")
	if err != nil || got != "/d/case_step1/out.txt" {
		t.Fatalf("File(step1, out.txt) = %q, %v", got, err)
	}

	folder, err := r.Folder("step1", "out.txt")
	if err != nil || folder != "/d/case_step1" {
		t.Fatalf("Folder(step1, out.txt) = %q, %v", folder, err)
	}
}

func TestResult_MkdirsCreatesParents(t *testing.T) {
	dir := t.TempDir()
	r := New(filepath.Join(dir, "case")+string(filepath.Separator), WithMkdirs())

	path, err := r.File("step1", "out.txt")
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	if fi, err := os.Stat(filepath.Dir(path)); err != nil || !fi.IsDir() {
		t.Fatalf("parent dir not created: %v", err)
	}
}

func TestNewFromPattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/d/case_{sample}", "/d/case_"},
		{"/d/case_*", "/d/case_"},
		{"/d/case_", "/d/case_"},
	}
	for _, tt := range tests {
		if got := NewFromPattern(tt.pattern).Prefix(); got != tt.want {
			t.Fatalf("NewFromPattern(%q) prefix = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestFromLog_RecoversPrefix(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "job.log")

	m, err := jobmonitor.New(logPath,
		jobmonitor.WithName("demo"),
		jobmonitor.WithResults(filepath.Join(dir, "case_")))
	if err != nil {
		t.Fatalf("monitor New() error: %v", err)
	}
	if err := m.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	m.End(nil)

	r, err := FromLog(logPath)
	if err != nil {
		t.Fatalf("FromLog() error: %v", err)
	}
	if r.Prefix() != filepath.Join(dir, "case_") {
		t.Fatalf("recovered prefix = %q", r.Prefix())
	}

	ok, err := r.Success()
	if err != nil {
		t.Fatalf("Success() error: %v", err)
	}
	if !ok {
		t.Fatalf("clean job reported as failed")
	}
}

func TestFromLog_NoResultLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "job.log")
	if err := os.WriteFile(logPath, []byte("\"demo\" started at 2026-08-24 10:00:00.\nsome progress\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if _, err := FromLog(logPath); err == nil {
		t.Fatalf("expected error when log has no result location line")
	}
}

func TestResult_ParseJSON(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "case_")
	r := New(prefix)

	if err := os.WriteFile(prefix+"stats.json", []byte(`{"reads": 42, "ok": true}`), 0644); err != nil {
		t.Fatalf("write result: %v", err)
	}

	var stats struct {
		Reads int  `json:"reads"`
		OK    bool `json:"ok"`
	}
	if err := r.ParseJSON(&stats, "stats.json"); err != nil {
		t.Fatalf("ParseJSON() error: %v", err)
	}
	if stats.Reads != 42 || !stats.OK {
		t.Fatalf("decoded stats mismatch: %+v", stats)
	}
}

func TestResult_ParseJSONInvalidContent(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "case_")
	r := New(prefix)

	if err := os.WriteFile(prefix+"broken.json", []byte("not json at all"), 0644); err != nil {
		t.Fatalf("write result: %v", err)
	}

	var v map[string]any
	err := r.ParseJSON(&v, "broken.json")
	if err == nil {
		t.Fatalf("expected format failure")
	}
	if jobmonitor.FailureKind(err) != jobmonitor.KindFormat {
		t.Fatalf("unexpected failure kind: %v", jobmonitor.FailureKind(err))
	}
}

func TestResult_ErrorText(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "job.log")
	if err := os.WriteFile(logPath, []byte("banner\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "job.error"), []byte("it broke\n"), 0644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	r := New(filepath.Join(dir, "out_"), WithLog(logPath))
	msg, failed, err := r.ErrorText()
	if err != nil {
		t.Fatalf("ErrorText() error: %v", err)
	}
	if !failed || !strings.Contains(msg, "it broke") {
		t.Fatalf("ErrorText() = %q, %v", msg, failed)
	}

	ok, err := r.Success()
	if err != nil {
		t.Fatalf("Success() error: %v", err)
	}
	if ok {
		t.Fatalf("failed job reported as success")
	}
}
