package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/kontrolhq/kontrol-backend/internal/repository"
	"github.com/kontrolhq/kontrol-backend/internal/service"
	"github.com/kontrolhq/kontrol-backend/internal/session"
	ws "github.com/kontrolhq/kontrol-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TimerWorker ticks every active session once per second. Each tick
// recomputes the remaining time from the persisted start instant — the
// worker holds no countdown of its own, so a restart or a stalled tick can
// delay events but never extend a deadline.
//
// Per tick and session it publishes the remaining time, fires any overdue
// reminders (each at most once, persisted before notifying) and, at the
// deadline, freezes the timer and hands the session to the forced-submission
// path exactly once.
type TimerWorker struct {
	repo       *repository.SessionRepository
	submits    *service.SubmitService
	rdb        *redis.Client
	cfg        *config.Config
	clock      session.Clock
	thresholds []time.Duration
	log        zerolog.Logger
}

// NewTimerWorker creates a new TimerWorker.
func NewTimerWorker(
	repo *repository.SessionRepository,
	submits *service.SubmitService,
	rdb *redis.Client,
	cfg *config.Config,
	clock session.Clock,
	log zerolog.Logger,
) *TimerWorker {
	return &TimerWorker{
		repo:       repo,
		submits:    submits,
		rdb:        rdb,
		cfg:        cfg,
		clock:      clock,
		thresholds: session.ReminderThresholds(cfg.RemindersMinutes),
		log:        log.With().Str("component", "timer_worker").Logger(),
	}
}

// Start begins the tick loop. Call in a goroutine.
func (w *TimerWorker) Start(ctx context.Context) {
	w.log.Info().
		Int("reminder_thresholds", len(w.thresholds)).
		Msg("Worker started")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *TimerWorker) tick(ctx context.Context) {
	sessions, err := w.repo.ActiveSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("List active sessions failed")
		}
		return
	}

	now := w.clock.Now()
	for _, sid := range sessions {
		w.tickSession(ctx, sid, now)
	}
}

func (w *TimerWorker) tickSession(ctx context.Context, sessionID string, now time.Time) {
	timer, err := w.repo.LoadTimer(ctx, sessionID)
	if err != nil {
		w.log.Error().Err(err).Str("session_id", sessionID).Msg("Load timer failed")
		return
	}
	if timer == nil || timer.Finished {
		// Reset or already frozen elsewhere; stop ticking it.
		w.repo.RemoveActive(ctx, sessionID)
		return
	}

	remaining := session.Remaining(timer, now)
	if remaining <= 0 {
		w.expire(ctx, sessionID, timer)
		return
	}

	// Fire overdue reminders largest-first. The fired marker is persisted
	// before the event goes out, so a crash in between suppresses the
	// notification rather than doubling it.
	for _, thr := range session.DueReminders(timer, w.thresholds, remaining) {
		session.MarkReminderFired(timer, thr)
		if err := w.repo.SaveTimer(ctx, sessionID, timer); err != nil {
			w.log.Error().Err(err).Str("session_id", sessionID).Msg("Persist reminder failed")
			return
		}
		w.publish(ctx, sessionID, ws.TimerEvent{
			Event:       ws.EventReminder,
			SessionID:   sessionID,
			RemainingMs: remaining.Milliseconds(),
			ThresholdMs: thr.Milliseconds(),
		})
		w.log.Info().
			Str("session_id", sessionID).
			Dur("threshold", thr).
			Msg("Reminder fired")
	}

	w.publish(ctx, sessionID, ws.TimerEvent{
		Event:       ws.EventTick,
		SessionID:   sessionID,
		RemainingMs: remaining.Milliseconds(),
	})
}

// expire freezes the timer, then attempts the forced submission. Order
// matters: Finished goes to the store first so answers are read-only and no
// second expiry can race in, even if the process dies mid-way.
func (w *TimerWorker) expire(ctx context.Context, sessionID string, timer *model.TimerState) {
	timer.Finished = true
	if err := w.repo.SaveTimer(ctx, sessionID, timer); err != nil {
		w.log.Error().Err(err).Str("session_id", sessionID).Msg("Persist expiry failed")
		return
	}

	w.publish(ctx, sessionID, ws.TimerEvent{
		Event:     ws.EventExpired,
		SessionID: sessionID,
	})
	w.log.Info().Str("session_id", sessionID).Msg("Session expired")

	if err := w.submits.ForceSubmit(ctx, sessionID); err != nil {
		w.log.Error().Err(err).Str("session_id", sessionID).Msg("Forced submission failed")
	}

	w.repo.RemoveActive(ctx, sessionID)
}

func (w *TimerWorker) publish(ctx context.Context, sessionID string, ev ws.TimerEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	channel := config.StoreKey.SessionEventsChannel(w.cfg.DataURL, sessionID)
	if err := w.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		w.log.Warn().Err(err).Str("session_id", sessionID).Msg("Event publish failed")
	}
}
