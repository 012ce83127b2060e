package model

import "time"

// Answer is one student answer, keyed by task ID in SessionState.
type Answer struct {
	Value string `json:"value"`
}

// SessionState is the durable answers/index blob. Persisted as a whole after
// every mutation (single atomic write, last-writer-wins — there is exactly
// one writer per session).
type SessionState struct {
	CurrentIndex int               `json:"idx"`
	Answers      map[TaskID]Answer `json:"answers"`
	LastSavedAt  time.Time         `json:"ts"`
}

// NewSessionState returns a fresh state starting at index 0.
func NewSessionState() *SessionState {
	return &SessionState{Answers: make(map[TaskID]Answer)}
}

// TimerState is the durable countdown blob. StartedAt is set exactly once
// per session and never rewritten while Finished is false; remaining time
// is always recomputed from it, never from an in-memory counter, so a page
// reload neither pauses nor extends the deadline.
type TimerState struct {
	StartedAt      *time.Time      `json:"startedAt"`
	DurationMs     int64           `json:"durationMs"`
	RemindersFired map[string]bool `json:"warned"`
	Finished       bool            `json:"finished"`
}

// Deadline returns the wall-clock instant the session expires.
// Zero time if the timer has not started.
func (t *TimerState) Deadline() time.Time {
	if t == nil || t.StartedAt == nil {
		return time.Time{}
	}
	return t.StartedAt.Add(time.Duration(t.DurationMs) * time.Millisecond)
}

// Running reports whether the timer has started and not yet expired.
func (t *TimerState) Running() bool {
	return t != nil && t.StartedAt != nil && !t.Finished
}

// SubmissionRecord is the durable idempotence blob. A new submission is
// skipped when Done is true and the freshly computed content hash equals
// ContentHash.
type SubmissionRecord struct {
	Done        bool      `json:"submitDone"`
	ContentHash string    `json:"sentHash,omitempty"`
	SubmittedAt time.Time `json:"ts"`
	EarlySubmit bool      `json:"earlySubmit,omitempty"`
}

// SessionView is the restore payload for a (re)loading client: everything
// needed to rebuild the page without touching the timer invariants.
type SessionView struct {
	SessionID    string            `json:"session_id"`
	Identity     *Identity         `json:"identity,omitempty"`
	CurrentIndex int               `json:"current_index"`
	Answers      map[TaskID]Answer `json:"answers"`
	RemainingMs  int64             `json:"remaining_ms"`
	DurationMs   int64             `json:"duration_ms"`
	Finished     bool              `json:"finished"`
	Submitted    bool              `json:"submitted"`
}
