// Package manifest loads and validates job manifests.
//
// A manifest describes one pipeline job for `jobmon run --job`: the
// command to execute, where its log lives, its upstream dependencies,
// and optional wildcard bindings substituted through the manifest's
// string fields before validation.
package manifest

import (
	"fmt"
	"strings"
	"time"
)

// Manifest is the typed form of a job manifest file.
type Manifest struct {
	// Name is the human-readable job name used in log banners and
	// failure messages.
	Name string `yaml:"name" json:"name"`
	// Log is the job's terminal log path; must end in LogExt.
	Log string `yaml:"log" json:"log"`
	// Command is the argv to execute.
	Command []string `yaml:"command" json:"command"`
	// Dir is the child working directory.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
	// Env adds to the child environment.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	// Timeout is a duration string ("30m", "1h30m"); zero means none.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Live streams subprocess stdout into the log as it is produced.
	Live bool `yaml:"live,omitempty" json:"live,omitempty"`
	// FailOnError escalates a failed subprocess as a job failure.
	// Defaults to true.
	FailOnError *bool `yaml:"fail_on_error,omitempty" json:"fail_on_error,omitempty"`
	// Results is the result-prefix pattern; a trailing wildcard group
	// is stripped to form the prefix recorded in the log banner.
	Results string `yaml:"results,omitempty" json:"results,omitempty"`
	// Dependencies lists upstream log paths or doublestar globs.
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	// Wildcards seeds the substitution scope applied over the
	// manifest's string values at load time.
	Wildcards map[string]string `yaml:"wildcards,omitempty" json:"wildcards,omitempty"`
	// LogExt overrides the terminal log extension (default ".log").
	LogExt string `yaml:"log_ext,omitempty" json:"log_ext,omitempty"`

	timeout time.Duration
}

// ApplyDefaults fills optional fields with their documented defaults.
func (m *Manifest) ApplyDefaults() {
	if m.Name == "" {
		m.Name = "Job"
	}
	if m.LogExt == "" {
		m.LogExt = ".log"
	}
	if m.FailOnError == nil {
		v := true
		m.FailOnError = &v
	}
}

// Validate checks required fields and parses the timeout.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Log) == "" {
		return fmt.Errorf("manifest: log path is required")
	}
	if !strings.HasSuffix(m.Log, m.LogExt) {
		return fmt.Errorf("manifest: log path %q must have the extension %q", m.Log, m.LogExt)
	}
	if len(m.Command) == 0 {
		return fmt.Errorf("manifest: command is required")
	}
	if m.Timeout != "" {
		d, err := time.ParseDuration(m.Timeout)
		if err != nil {
			return fmt.Errorf("manifest: invalid timeout %q: %w", m.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("manifest: timeout must not be negative")
		}
		m.timeout = d
	}
	return nil
}

// TimeoutDuration returns the parsed timeout; zero means none.
// Valid only after Validate.
func (m *Manifest) TimeoutDuration() time.Duration {
	return m.timeout
}

// Environ merges the manifest env entries onto base ("KEY=VALUE"
// slices) for handing to the subprocess runner. Returns nil when the
// manifest declares no env, so callers inherit the parent environment.
func (m *Manifest) Environ(base []string) []string {
	if len(m.Env) == 0 {
		return nil
	}
	out := make([]string, 0, len(base)+len(m.Env))
	out = append(out, base...)
	for k, v := range m.Env {
		out = append(out, k+"="+v)
	}
	return out
}
