package application

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownCheck     = errors.New("unknown security check")
	ErrCheckRunning     = errors.New("security check already running")
	ErrSuiteBusy        = errors.New("security suite already running for caller")
	ErrQueueUnavailable = errors.New("job queue not configured")
)

// CheckStatus is the lifecycle of a single self-check:
// pending -> running -> passed | failed. Re-running a finished check
// moves it back to running.
type CheckStatus string

const (
	StatusPending CheckStatus = "pending"
	StatusRunning CheckStatus = "running"
	StatusPassed  CheckStatus = "passed"
	StatusFailed  CheckStatus = "failed"
)

func (s CheckStatus) Terminal() bool {
	return s == StatusPassed || s == StatusFailed
}

type CheckState struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      CheckStatus `json:"status"`
	Result      string      `json:"result"`
	// Vacuous marks a pass where there was nothing to test.
	Vacuous    bool       `json:"vacuous"`
	DurationMS int64      `json:"duration_ms"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SuiteState is the per-caller view of the catalogue, persisted after
// every transition so progress can be polled.
type SuiteState struct {
	RunID           string       `json:"run_id"`
	CallerID        string       `json:"caller_id"`
	Checks          []CheckState `json:"checks"`
	OverallProgress int          `json:"overall_progress"`
	Running         bool         `json:"running"`
	Passed          int          `json:"passed"`
	Failed          int          `json:"failed"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	FinishedAt      *time.Time   `json:"finished_at,omitempty"`
}

func newSuiteState(callerID string, checks []Check) *SuiteState {
	st := &SuiteState{CallerID: callerID, Checks: make([]CheckState, len(checks))}
	for i, c := range checks {
		st.Checks[i] = CheckState{Key: c.Key, Name: c.Name, Description: c.Description, Status: StatusPending}
	}
	return st
}

// reset puts every check back to pending for a fresh run-all.
func (s *SuiteState) reset(runID string, now time.Time) {
	for i := range s.Checks {
		c := &s.Checks[i]
		c.Status = StatusPending
		c.Result = ""
		c.Vacuous = false
		c.DurationMS = 0
		c.StartedAt = nil
		c.FinishedAt = nil
	}
	s.RunID = runID
	s.OverallProgress = 0
	s.Running = true
	s.StartedAt = &now
	s.FinishedAt = nil
	s.tally()
}

func (s *SuiteState) find(key string) *CheckState {
	for i := range s.Checks {
		if s.Checks[i].Key == key {
			return &s.Checks[i]
		}
	}
	return nil
}

// Check returns a copy of the state of key.
func (s *SuiteState) Check(key string) (CheckState, bool) {
	if c := s.find(key); c != nil {
		return *c, true
	}
	return CheckState{}, false
}

// abandon clears what an interrupted run left behind: running checks go
// back to pending and the suite stops reporting a run in progress. It
// reports whether anything was cleared.
func (s *SuiteState) abandon() bool {
	stale := s.Running
	for i := range s.Checks {
		c := &s.Checks[i]
		if c.Status != StatusRunning {
			continue
		}
		stale = true
		c.Status = StatusPending
		c.Result = ""
		c.Vacuous = false
		c.DurationMS = 0
		c.StartedAt = nil
		c.FinishedAt = nil
	}
	s.Running = false
	s.tally()
	return stale
}

func (s *SuiteState) start(key string, now time.Time) error {
	c := s.find(key)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCheck, key)
	}
	if c.Status == StatusRunning {
		return fmt.Errorf("%w: %s", ErrCheckRunning, key)
	}
	c.Status = StatusRunning
	c.Result = ""
	c.Vacuous = false
	c.DurationMS = 0
	c.StartedAt = &now
	c.FinishedAt = nil
	s.tally()
	return nil
}

// finish moves a running check to its terminal state. A non-nil err
// always fails the check with the error text as its result.
func (s *SuiteState) finish(key string, out Outcome, err error, elapsed time.Duration, now time.Time) {
	c := s.find(key)
	if c == nil {
		return
	}
	switch {
	case err != nil:
		c.Status = StatusFailed
		c.Result = err.Error()
		c.Vacuous = false
	case out.Passed:
		c.Status = StatusPassed
		c.Result = out.Message
		c.Vacuous = out.Vacuous
	default:
		c.Status = StatusFailed
		c.Result = out.Message
		c.Vacuous = false
	}
	c.DurationMS = elapsed.Milliseconds()
	c.FinishedAt = &now
	s.tally()
}

func (s *SuiteState) tally() {
	s.Passed, s.Failed = 0, 0
	for _, c := range s.Checks {
		switch c.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		}
	}
}

// FailedChecks returns the checks that ended failed, in catalogue order.
func (s *SuiteState) FailedChecks() []CheckState {
	var out []CheckState
	for _, c := range s.Checks {
		if c.Status == StatusFailed {
			out = append(out, c)
		}
	}
	return out
}

// progress is the share of the catalogue finished, in whole percent.
func progress(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}
