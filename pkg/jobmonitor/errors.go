package jobmonitor

import (
	"errors"
	"fmt"
)

// Kind classifies a job failure.
//
// NOTE: These values appear in diagnostic output and are part of the
// stable operator-facing contract.
type Kind string

const (
	// KindSetup covers directory/file creation errors during Begin.
	// Always fatal: no run state exists yet.
	KindSetup Kind = "setup"
	// KindRun covers errors raised by job logic inside a scoped run.
	KindRun Kind = "run"
	// KindSubprocess covers a child process exiting nonzero.
	KindSubprocess Kind = "subprocess"
	// KindTimeout covers a child process killed at its deadline.
	KindTimeout Kind = "timeout"
	// KindDependency covers an upstream job with a recorded error.
	// Always fatal: a job must never proceed past a failed prerequisite.
	KindDependency Kind = "dependency"
	// KindFormat covers structured-output decode errors.
	KindFormat Kind = "format"
)

// Failure is the tagged error type for all job-level failures.
type Failure struct {
	Kind   Kind
	Job    string
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("job %q: %s failure", f.Job, f.Kind)
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is allows errors.Is matching against a bare Failure carrying only a Kind.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Job == "" || t.Job == f.Job)
}

func newFailure(kind Kind, job, detail string, err error) *Failure {
	return &Failure{Kind: kind, Job: job, Detail: detail, Err: err}
}

// FailureKind extracts the Kind from err, or "" if err is not a Failure.
func FailureKind(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsTimeout reports whether err is a deadline-expiry subprocess failure,
// as opposed to a plain nonzero exit.
func IsTimeout(err error) bool {
	return FailureKind(err) == KindTimeout
}
