package types

import "time"

// Status represents the lifecycle state of a suite or spec
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusDisabled Status = "disabled"
)

// IsFinal reports whether the status is a terminal outcome
func (s Status) IsFinal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusDisabled:
		return true
	default:
		return false
	}
}

// FailedExpectation is a single failed check inside a spec
type FailedExpectation struct {
	MatcherName string `json:"matcherName"`
	Message     string `json:"message"`
}

// SpecResult captures the outcome of a single spec
type SpecResult struct {
	ID                 string              `json:"id"`
	Description        string              `json:"description"`
	FullName           string              `json:"fullName"`
	Status             Status              `json:"status"`
	FailedExpectations []FailedExpectation `json:"failedExpectations,omitempty"`
	Duration           time.Duration       `json:"duration,omitempty"`
}

// SuiteInfo identifies a suite in lifecycle events
type SuiteInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	FullName    string `json:"fullName"`
}
