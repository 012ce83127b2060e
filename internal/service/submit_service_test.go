package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/kontrolhq/kontrol-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// countingTransport records deliveries and can be told to fail.
type countingTransport struct {
	delivered []*model.ResultPack
	fail      bool
}

func (t *countingTransport) Name() string { return "counting" }

func (t *countingTransport) Deliver(_ context.Context, pack *model.ResultPack) error {
	if t.fail {
		return errors.New("collection endpoint unreachable")
	}
	t.delivered = append(t.delivered, pack)
	return nil
}

func testBank() *model.QuestionBank {
	return &model.QuestionBank{
		Meta: model.QuestionBankMeta{Title: "Контрольная работа", Variant: "variant26"},
		Tasks: []model.Task{
			{ID: "1", Text: "Первое задание"},
			{ID: "2", Text: "Второе задание"},
		},
	}
}

func newSubmitFixture(t *testing.T) (*SubmitService, *repository.SessionRepository, *countingTransport, *fixedClock) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{DataURL: "./variant26.json", DurationMinutes: 45}
	repo := repository.NewSessionRepository(rdb, cfg.DataURL)
	clock := &fixedClock{now: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)}
	tr := &countingTransport{}

	svc := NewSubmitService(repo, testBank(), tr, rdb, cfg, clock, zerolog.Nop())
	return svc, repo, tr, clock
}

func startSession(t *testing.T, repo *repository.SessionRepository, clock *fixedClock, answers map[model.TaskID]string) {
	t.Helper()
	ctx := context.Background()

	started := clock.now
	if err := repo.SaveTimer(ctx, "sid", &model.TimerState{
		StartedAt:      &started,
		DurationMs:     45 * 60 * 1000,
		RemindersFired: map[string]bool{},
	}); err != nil {
		t.Fatalf("save timer: %v", err)
	}
	if err := repo.SaveIdentity(ctx, "sid", &model.Identity{FullName: "Иванов Иван", ClassName: "10А"}); err != nil {
		t.Fatalf("save identity: %v", err)
	}

	state := model.NewSessionState()
	for id, v := range answers {
		state.Answers[id] = model.Answer{Value: v}
	}
	if err := repo.SaveState(ctx, "sid", state); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if err := repo.AddActive(ctx, "sid"); err != nil {
		t.Fatalf("add active: %v", err)
	}
}

func TestSubmitPartialRequiresConfirmation(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ"})

	_, err := svc.SubmitNow(context.Background(), "sid", false)
	if !errors.Is(err, ErrConfirmRequired) {
		t.Fatalf("want ErrConfirmRequired, got %v", err)
	}
	if len(tr.delivered) != 0 {
		t.Fatalf("nothing should be delivered without confirmation")
	}
}

func TestManualSubmitIsSingleShot(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ", "2": "42"})
	ctx := context.Background()

	res, err := svc.SubmitNow(ctx, "sid", false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.AlreadySent {
		t.Fatal("first submit reported as duplicate")
	}
	if len(tr.delivered) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(tr.delivered))
	}

	// The repeated trigger with unchanged content is a no-op.
	res2, err := svc.SubmitNow(ctx, "sid", false)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !res2.AlreadySent {
		t.Fatal("resubmit not detected as duplicate")
	}
	if len(tr.delivered) != 1 {
		t.Fatalf("duplicate delivery happened: %d", len(tr.delivered))
	}
	if res2.ContentHash != res.ContentHash {
		t.Fatalf("hash changed between identical submits")
	}

	// The session is frozen after the early submit.
	timer, err := repo.LoadTimer(ctx, "sid")
	if err != nil || timer == nil || !timer.Finished {
		t.Fatalf("timer not frozen after submit: %+v, %v", timer, err)
	}
	active, _ := repo.ActiveSessions(ctx)
	if len(active) != 0 {
		t.Fatalf("session still ticking after submit: %v", active)
	}
}

func TestCompleteManualSubmitDeliversVerbatimPack(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ", "2": "  42  "})
	ctx := context.Background()

	res, err := svc.SubmitNow(ctx, "sid", false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A fully answered work ships as-is: no sentinel, no early flag, no
	// partial summary.
	pack := tr.delivered[0]
	if pack.Timer.EarlySubmit {
		t.Fatal("complete work flagged as an early submit")
	}
	if pack.Stats != nil {
		t.Fatalf("complete work carries partial stats: %+v", pack.Stats)
	}
	if pack.Answers[0].Value != "ответ" || pack.Answers[1].Value != "  42  " {
		t.Fatalf("answers not delivered verbatim: %+v", pack.Answers)
	}
	if res.EarlySubmit || res.Stats != nil {
		t.Fatalf("result mislabels a complete submission: %+v", res)
	}

	rec, err := repo.LoadSubmission(ctx, "sid")
	if err != nil || rec == nil {
		t.Fatalf("load record: %+v, %v", rec, err)
	}
	if rec.EarlySubmit {
		t.Fatal("record flags a complete submission as early")
	}
}

func TestExportOnlyAfterFinishRejectsPartial(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	svc.cfg.ExportOnlyAfterFinish = true
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ"})
	ctx := context.Background()

	// The confirmation flag cannot override the completeness requirement.
	if _, err := svc.SubmitNow(ctx, "sid", true); !errors.Is(err, ErrCompletionRequired) {
		t.Fatalf("want ErrCompletionRequired, got %v", err)
	}
	if len(tr.delivered) != 0 {
		t.Fatal("incomplete work must not be delivered")
	}

	state, err := repo.LoadState(ctx, "sid")
	if err != nil || state == nil {
		t.Fatalf("load state: %v", err)
	}
	state.Answers["2"] = model.Answer{Value: "42"}
	if err := repo.SaveState(ctx, "sid", state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	if _, err := svc.SubmitNow(ctx, "sid", false); err != nil {
		t.Fatalf("complete submit: %v", err)
	}
	if len(tr.delivered) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(tr.delivered))
	}
}

func TestPartialSubmitSubstitutesSentinel(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ"})

	res, err := svc.SubmitNow(context.Background(), "sid", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Stats == nil || res.Stats.Solved != 1 || res.Stats.Total != 2 || res.Stats.SolvedPercentage != 50 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}

	pack := tr.delivered[0]
	if pack.Answers[1].Value != "0" {
		t.Fatalf("blank answer not replaced by sentinel: %+v", pack.Answers)
	}
	if !pack.Timer.EarlySubmit {
		t.Fatal("early submit flag missing")
	}
}

func TestFailedDeliveryStaysRetryable(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ", "2": "42"})
	ctx := context.Background()

	tr.fail = true
	if _, err := svc.SubmitNow(ctx, "sid", false); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("want ErrDeliveryFailed, got %v", err)
	}

	// No record was written; the retry goes through as a first submission.
	rec, err := repo.LoadSubmission(ctx, "sid")
	if err != nil || rec != nil {
		t.Fatalf("record after failed delivery: %+v, %v", rec, err)
	}

	tr.fail = false
	res, err := svc.SubmitNow(ctx, "sid", false)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.AlreadySent || len(tr.delivered) != 1 {
		t.Fatalf("retry did not deliver exactly once: already=%v n=%d", res.AlreadySent, len(tr.delivered))
	}
}

func TestForceSubmitOnlyWhenComplete(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ"})
	ctx := context.Background()

	if err := svc.ForceSubmit(ctx, "sid"); err != nil {
		t.Fatalf("force submit: %v", err)
	}
	if len(tr.delivered) != 0 {
		t.Fatal("incomplete work must not be auto-sent")
	}
}

func TestForceSubmitFiresOnce(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ", "2": "42"})
	ctx := context.Background()

	if err := svc.ForceSubmit(ctx, "sid"); err != nil {
		t.Fatalf("force submit: %v", err)
	}
	if err := svc.ForceSubmit(ctx, "sid"); err != nil {
		t.Fatalf("second force submit: %v", err)
	}
	if len(tr.delivered) != 1 {
		t.Fatalf("deliveries = %d, want exactly 1", len(tr.delivered))
	}
	if tr.delivered[0].Timer.EarlySubmit {
		t.Fatal("expiry submission must not carry the early flag")
	}
}

func TestForceSubmitDeliveryFailureIsDropped(t *testing.T) {
	svc, repo, tr, clock := newSubmitFixture(t)
	startSession(t, repo, clock, map[model.TaskID]string{"1": "ответ", "2": "42"})
	ctx := context.Background()

	tr.fail = true
	if err := svc.ForceSubmit(ctx, "sid"); err != nil {
		t.Fatalf("forced delivery failure must not propagate: %v", err)
	}
	rec, err := repo.LoadSubmission(ctx, "sid")
	if err != nil || rec != nil {
		t.Fatalf("record written despite failed delivery: %+v, %v", rec, err)
	}
}
