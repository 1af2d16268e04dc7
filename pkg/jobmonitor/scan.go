package jobmonitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// State is the observable lifecycle state of a job's file artifacts.
//
// NOTE: These values appear in CLI/JSON output and are part of the
// stable operator-facing contract.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// JobStatus summarizes one job's on-disk record.
type JobStatus struct {
	Name      string    `json:"name"`
	Base      string    `json:"base"`
	State     State     `json:"state"`
	LogPath   string    `json:"log_path"`
	ErrorPath string    `json:"error_path,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScanDir classifies the job artifacts directly under dir into status
// records, newest first. A base path with a running file is running; a
// base with a log is succeeded unless a sibling error report exists.
func ScanDir(dir, logExt string) ([]JobStatus, error) {
	if logExt == "" {
		logExt = DefaultLogExt
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read jobs dir: %w", err)
	}

	type artifacts struct {
		running, log, errFile string
	}
	byBase := make(map[string]*artifacts)
	get := func(base string) *artifacts {
		a, ok := byBase[base]
		if !ok {
			a = &artifacts{}
			byBase[base] = a
		}
		return a
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		switch {
		case strings.HasSuffix(name, runningExt):
			get(strings.TrimSuffix(path, runningExt)).running = path
		case strings.HasSuffix(name, logExt):
			get(strings.TrimSuffix(path, logExt)).log = path
		case strings.HasSuffix(name, errorExt):
			get(strings.TrimSuffix(path, errorExt)).errFile = path
		}
	}

	out := make([]JobStatus, 0, len(byBase))
	for base, a := range byBase {
		st := JobStatus{
			Name: filepath.Base(base),
			Base: base,
		}
		switch {
		case a.running != "":
			st.State = StateRunning
			st.LogPath = a.running
		case a.log != "" && a.errFile != "":
			st.State = StateFailed
			st.LogPath = a.log
			st.ErrorPath = a.errFile
			if b, err := os.ReadFile(a.errFile); err == nil {
				st.Error = strings.TrimSpace(string(b))
			}
		case a.log != "":
			st.State = StateSucceeded
			st.LogPath = a.log
		default:
			// An orphan error report without its log; ignore.
			continue
		}
		if fi, err := os.Stat(st.LogPath); err == nil {
			st.UpdatedAt = fi.ModTime().UTC()
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
