package session

import (
	"sort"
	"strconv"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/model"
)

// StartTimer returns a freshly started timer. Called exactly once per
// session, at identity confirmation.
func StartTimer(durationMinutes int, clock Clock) *model.TimerState {
	now := clock.Now()
	return &model.TimerState{
		StartedAt:      &now,
		DurationMs:     int64(durationMinutes) * 60 * 1000,
		RemindersFired: make(map[string]bool),
	}
}

// Remaining recomputes the time left from the persisted start instant.
// Negative values mean the deadline has passed. A timer that has not
// started yet reports its full duration.
func Remaining(t *model.TimerState, now time.Time) time.Duration {
	if t == nil {
		return 0
	}
	if t.StartedAt == nil {
		return time.Duration(t.DurationMs) * time.Millisecond
	}
	return t.Deadline().Sub(now)
}

// ReminderThresholds converts configured minutes into durations sorted in
// descending order, so the largest applicable threshold fires first on ties.
func ReminderThresholds(minutes []int) []time.Duration {
	out := make([]time.Duration, 0, len(minutes))
	for _, m := range minutes {
		if m > 0 {
			out = append(out, time.Duration(m)*time.Minute)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// ReminderKey is the persisted marker for a fired threshold.
func ReminderKey(t time.Duration) string {
	return strconv.FormatInt(t.Milliseconds(), 10)
}

// DueReminders returns the thresholds that should fire now, in descending
// order, each at most once per session. A threshold skipped by a delayed
// tick (tab backgrounded, worker stalled) still fires on the next observed
// tick; thresholds are never fired after expiry.
func DueReminders(t *model.TimerState, thresholds []time.Duration, remaining time.Duration) []time.Duration {
	if t == nil || remaining <= 0 {
		return nil
	}
	var due []time.Duration
	for _, thr := range thresholds {
		if remaining <= thr && !t.RemindersFired[ReminderKey(thr)] {
			due = append(due, thr)
		}
	}
	return due
}

// MarkReminderFired records a threshold in the timer state. The caller
// persists the state before notifying the user, so a crash between the two
// cannot double-fire.
func MarkReminderFired(t *model.TimerState, thr time.Duration) {
	if t.RemindersFired == nil {
		t.RemindersFired = make(map[string]bool)
	}
	t.RemindersFired[ReminderKey(thr)] = true
}

// ClampIndex bounds a restored question index to [0, count-1], tolerating a
// shrunk question set. Returns 0 for an empty set.
func ClampIndex(idx, count int) int {
	if count <= 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx > count-1 {
		return count - 1
	}
	return idx
}
