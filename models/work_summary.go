package models

import (
	"fmt"
	"strings"
	"time"
)

// WorkSummary records the outcome of one unit of pipeline work: a
// single stage run, or one deposit's trip through a stage. Stages add
// errors to the summary as they go; the runner logs the summary when
// the work finishes.
type WorkSummary struct {
	// Attempted is set when the work actually starts. Work can be
	// scheduled but never attempted, e.g. when a batch preflight
	// aborts the run.
	Attempted bool

	// ErrorIsFatal is set when an error means the work should not
	// be retried (checksum mismatch, virus found). Transient errors
	// such as network timeouts leave it false.
	ErrorIsFatal bool

	// Errors describes everything that went wrong, in order.
	Errors []string

	// StartedAt and FinishedAt bracket the attempt. A zero
	// FinishedAt means the work is still running (or never ran).
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewWorkSummary() *WorkSummary {
	return &WorkSummary{
		Errors: make([]string, 0),
	}
}

func (summary *WorkSummary) Start() {
	summary.Attempted = true
	summary.StartedAt = time.Now().UTC()
}

func (summary *WorkSummary) Started() bool {
	return !summary.StartedAt.IsZero()
}

func (summary *WorkSummary) Finish() {
	summary.FinishedAt = time.Now().UTC()
}

func (summary *WorkSummary) Finished() bool {
	return !summary.FinishedAt.IsZero()
}

func (summary *WorkSummary) RunTime() time.Duration {
	if summary.StartedAt.IsZero() {
		return time.Duration(0)
	}
	end := summary.FinishedAt
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return end.Sub(summary.StartedAt)
}

// Succeeded reports whether the work finished without errors.
func (summary *WorkSummary) Succeeded() bool {
	return summary.Finished() && len(summary.Errors) == 0
}

func (summary *WorkSummary) AddError(format string, a ...interface{}) {
	summary.Errors = append(summary.Errors, fmt.Sprintf(format, a...))
}

func (summary *WorkSummary) HasErrors() bool {
	return len(summary.Errors) > 0
}

func (summary *WorkSummary) FirstError() string {
	if len(summary.Errors) > 0 {
		return summary.Errors[0]
	}
	return ""
}

func (summary *WorkSummary) AllErrorsAsString() string {
	return strings.Join(summary.Errors, "\n")
}
