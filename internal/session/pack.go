package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/model"
)

// Sentinel replaces empty answers during an explicit early/partial manual
// submission, so the grader scores blanks as "0" rather than skipping them.
const Sentinel = "0"

// FilledCount counts answers with a non-empty normalized value, measured
// against the question bank (stray answers for removed tasks don't count).
func FilledCount(bank *model.QuestionBank, state *model.SessionState) int {
	n := 0
	for _, task := range bank.Tasks {
		if NormText(state.Answers[task.ID].Value) != "" {
			n++
		}
	}
	return n
}

// AllAnswered reports whether every task has a non-empty answer.
func AllAnswered(bank *model.QuestionBank, state *model.SessionState) bool {
	return len(bank.Tasks) > 0 && FilledCount(bank, state) == len(bank.Tasks)
}

// BuildPack assembles the verbatim result pack: answers exactly as entered,
// in question-bank order.
func BuildPack(bank *model.QuestionBank, identity *model.Identity, state *model.SessionState, timer *model.TimerState, now time.Time) *model.ResultPack {
	answers := make([]model.PackAnswer, 0, len(bank.Tasks))
	for _, task := range bank.Tasks {
		answers = append(answers, model.PackAnswer{ID: task.ID, Value: state.Answers[task.ID].Value})
	}

	return &model.ResultPack{
		Meta:            bank.Meta,
		Variant:         variantOf(bank),
		Identity:        identity,
		TS:              now,
		DurationMinutes: int(timer.DurationMs / 60000),
		Timer:           model.PackTimer{StartedAt: timer.StartedAt, Finished: timer.Finished},
		Answers:         answers,
	}
}

// BuildPartialPack assembles the early-submission pack: empty answers are
// replaced by the sentinel, the pack is flagged as an early submit, and a
// solved/total summary is attached.
func BuildPartialPack(bank *model.QuestionBank, identity *model.Identity, state *model.SessionState, timer *model.TimerState, now time.Time) *model.ResultPack {
	answers := make([]model.PackAnswer, 0, len(bank.Tasks))
	solved := 0
	for _, task := range bank.Tasks {
		value := state.Answers[task.ID].Value
		if NormText(value) == "" {
			value = Sentinel
		} else {
			solved++
		}
		answers = append(answers, model.PackAnswer{ID: task.ID, Value: value})
	}

	total := len(bank.Tasks)
	pct := 0
	if total > 0 {
		pct = solved * 100 / total
	}

	return &model.ResultPack{
		Meta:            bank.Meta,
		Variant:         variantOf(bank),
		Identity:        identity,
		TS:              now,
		DurationMinutes: int(timer.DurationMs / 60000),
		Timer:           model.PackTimer{StartedAt: timer.StartedAt, EarlySubmit: true},
		Answers:         answers,
		Stats:           &model.PackStats{Solved: solved, Total: total, SolvedPercentage: pct},
	}
}

// packContent is the canonical hash input: everything that identifies the
// submitted content. The volatile TS field and the timer's Finished flag are
// excluded: TS changes on every rebuild, and Finished flips when the timer
// freezes right after a successful delivery. Either would make resubmitting
// the same content look "new" and defeat the dedup check.
type packContent struct {
	Variant  string             `json:"variant"`
	Identity *model.Identity    `json:"identity"`
	Duration int                `json:"durationMinutes"`
	Timer    packTimerContent   `json:"timer"`
	Answers  []model.PackAnswer `json:"answers"`
}

type packTimerContent struct {
	StartedAt   *time.Time `json:"startedAt"`
	EarlySubmit bool       `json:"earlySubmit,omitempty"`
}

// PackHash returns the SHA-256 hex digest of the pack's canonical content.
// Two packs with identical answers, identity and timer snapshot always hash
// identically — this is what makes resubmission a detectable no-op.
func PackHash(pack *model.ResultPack) string {
	raw, _ := json.Marshal(packContent{
		Variant:  pack.Variant,
		Identity: pack.Identity,
		Duration: pack.DurationMinutes,
		Timer:    packTimerContent{StartedAt: pack.Timer.StartedAt, EarlySubmit: pack.Timer.EarlySubmit},
		Answers:  pack.Answers,
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func variantOf(bank *model.QuestionBank) string {
	if bank.Meta.Variant != "" {
		return bank.Meta.Variant
	}
	return "unknown"
}
