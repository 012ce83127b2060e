package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/model"
)

func testBank(n int) *model.QuestionBank {
	bank := &model.QuestionBank{
		Meta: model.QuestionBankMeta{Title: "Контрольная", Variant: "variant26"},
	}
	for i := 1; i <= n; i++ {
		bank.Tasks = append(bank.Tasks, model.Task{
			ID:   model.TaskID(fmt.Sprintf("%d", i)),
			Text: fmt.Sprintf("Task %d", i),
		})
	}
	return bank
}

func testTimer() *model.TimerState {
	started := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	return &model.TimerState{
		StartedAt:      &started,
		DurationMs:     45 * 60 * 1000,
		RemindersFired: map[string]bool{},
	}
}

func TestBuildPartialPackSubstitutesSentinel(t *testing.T) {
	bank := testBank(10)
	state := model.NewSessionState()
	for i := 1; i <= 5; i++ {
		state.Answers[model.TaskID(fmt.Sprintf("%d", i))] = model.Answer{Value: fmt.Sprintf("ans%d", i)}
	}

	pack := BuildPartialPack(bank, &model.Identity{FullName: "Ковалева Светлана", ClassName: "10А"}, state, testTimer(), time.Now())

	if len(pack.Answers) != 10 {
		t.Fatalf("expected 10 answers, got %d", len(pack.Answers))
	}
	for i, a := range pack.Answers {
		if i < 5 {
			want := fmt.Sprintf("ans%d", i+1)
			if a.Value != want {
				t.Errorf("answer %s = %q, want %q", a.ID, a.Value, want)
			}
		} else if a.Value != Sentinel {
			t.Errorf("answer %s = %q, want sentinel %q", a.ID, a.Value, Sentinel)
		}
	}

	if pack.Stats == nil || pack.Stats.Solved != 5 || pack.Stats.Total != 10 || pack.Stats.SolvedPercentage != 50 {
		t.Fatalf("unexpected stats: %+v", pack.Stats)
	}
	if !pack.Timer.EarlySubmit {
		t.Fatal("partial pack not flagged as early submit")
	}
}

func TestBuildPackKeepsVerbatimValues(t *testing.T) {
	bank := testBank(10)
	state := model.NewSessionState()
	for i := 1; i <= 10; i++ {
		state.Answers[model.TaskID(fmt.Sprintf("%d", i))] = model.Answer{Value: fmt.Sprintf("  v%d  ", i)}
	}

	pack := BuildPack(bank, &model.Identity{FullName: "Иванов Иван", ClassName: "11Б"}, state, testTimer(), time.Now())

	for i, a := range pack.Answers {
		want := fmt.Sprintf("  v%d  ", i+1)
		if a.Value != want {
			t.Errorf("answer %s = %q, want verbatim %q", a.ID, a.Value, want)
		}
	}
	if pack.Stats != nil {
		t.Fatal("full pack must not carry partial stats")
	}
	if pack.DurationMinutes != 45 {
		t.Fatalf("durationMinutes = %d, want 45", pack.DurationMinutes)
	}
}

func TestPackHashIgnoresTimestamp(t *testing.T) {
	bank := testBank(3)
	state := model.NewSessionState()
	state.Answers["1"] = model.Answer{Value: "a"}
	state.Answers["2"] = model.Answer{Value: "b"}
	state.Answers["3"] = model.Answer{Value: "c"}
	identity := &model.Identity{FullName: "Иванов Иван", ClassName: "9В"}
	timer := testTimer()

	p1 := BuildPack(bank, identity, state, timer, time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC))
	p2 := BuildPack(bank, identity, state, timer, time.Date(2025, 9, 1, 9, 31, 0, 0, time.UTC))

	if PackHash(p1) != PackHash(p2) {
		t.Fatal("identical content produced different hashes")
	}

	state.Answers["3"] = model.Answer{Value: "changed"}
	p3 := BuildPack(bank, identity, state, timer, time.Date(2025, 9, 1, 9, 31, 0, 0, time.UTC))
	if PackHash(p1) == PackHash(p3) {
		t.Fatal("changed content produced the same hash")
	}
}

func TestPackHashIgnoresFinishedFlag(t *testing.T) {
	bank := testBank(2)
	state := model.NewSessionState()
	state.Answers["1"] = model.Answer{Value: "a"}
	state.Answers["2"] = model.Answer{Value: "b"}
	identity := &model.Identity{FullName: "Иванов Иван", ClassName: "9В"}
	now := time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC)

	running := testTimer()
	before := BuildPack(bank, identity, state, running, now)

	// After delivery the timer is persisted as finished; rebuilding the same
	// content then must still hash identically, or the resubmission no-op
	// would break the moment the timer froze.
	frozen := testTimer()
	frozen.Finished = true
	after := BuildPack(bank, identity, state, frozen, now)

	if PackHash(before) != PackHash(after) {
		t.Fatal("freezing the timer changed the content hash")
	}
}

func TestFilledCountUsesNormalizedValues(t *testing.T) {
	bank := testBank(3)
	state := model.NewSessionState()
	state.Answers["1"] = model.Answer{Value: "  "}
	state.Answers["2"] = model.Answer{Value: "x"}

	if got := FilledCount(bank, state); got != 1 {
		t.Fatalf("FilledCount = %d, want 1", got)
	}
	if AllAnswered(bank, state) {
		t.Fatal("AllAnswered true with blanks present")
	}

	state.Answers["1"] = model.Answer{Value: "y"}
	state.Answers["3"] = model.Answer{Value: "z"}
	if !AllAnswered(bank, state) {
		t.Fatal("AllAnswered false with all tasks filled")
	}
}
