package jobmonitor

import (
	"fmt"
	"os"
	"strings"
)

// ErrorReportPath returns the error-report path co-located with a log
// path carrying the given terminal extension.
func ErrorReportPath(logPath, logExt string) string {
	if logExt == "" {
		logExt = DefaultLogExt
	}
	return strings.TrimSuffix(logPath, logExt) + errorExt
}

// CheckError looks up the error report co-located with a job's log
// path. It returns the report contents and whether the report exists;
// an existing but empty report still counts as a failure.
func CheckError(logPath, logExt string) (string, bool, error) {
	errPath := ErrorReportPath(logPath, logExt)
	b, err := os.ReadFile(errPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read dependency error report %s: %w", errPath, err)
	}
	return string(b), true, nil
}

// CheckError reports the failure recorded by another job, if any.
func (m *Monitor) CheckError(logPath string) (string, bool, error) {
	return CheckError(logPath, m.logExt)
}

// CheckDependency fails this job when the dependency's last run left an
// error report behind. This is a hard stop: a job must never proceed
// past a failed prerequisite.
func (m *Monitor) CheckDependency(logPath string) error {
	msg, failed, err := m.CheckError(logPath)
	if err != nil {
		return newFailure(KindDependency, m.name, fmt.Sprintf("dependency %q", logPath), err)
	}
	if failed {
		return newFailure(KindDependency, m.name,
			fmt.Sprintf("depends on failed job %q: %s", logPath, strings.TrimSpace(msg)), nil)
	}
	return nil
}

// CheckDependencies checks each upstream log path in order, stopping at
// the first failure. Entries without the log extension (non-log
// artifacts in a mixed dependency list) are skipped.
func (m *Monitor) CheckDependencies(paths []string) error {
	for _, p := range paths {
		if !strings.HasSuffix(p, m.logExt) {
			continue
		}
		if err := m.CheckDependency(p); err != nil {
			return err
		}
	}
	return nil
}
