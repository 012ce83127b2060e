package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/kontrolhq/kontrol-backend/internal/repository"
	"github.com/kontrolhq/kontrol-backend/internal/session"
	"github.com/rs/zerolog"
)

// SessionService drives the quiz session state machine: the one-way identity
// gate, the write-through answer store and the restore path. The countdown
// itself is owned by the timer worker; this service only reads timer state.
type SessionService struct {
	repo  *repository.SessionRepository
	bank  *model.QuestionBank
	cfg   *config.Config
	clock session.Clock
	log   zerolog.Logger
}

// NewSessionService creates a SessionService over the loaded question bank.
func NewSessionService(
	repo *repository.SessionRepository,
	bank *model.QuestionBank,
	cfg *config.Config,
	clock session.Clock,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		repo:  repo,
		bank:  bank,
		cfg:   cfg,
		clock: clock,
		log:   log.With().Str("component", "session_service").Logger(),
	}
}

// StartSession passes the identity gate and starts the countdown. The gate
// is one-way: once this returns, the identity is fixed and the timer is
// running; neither can be changed short of an explicit reset.
//
// Name and class validation errors (session.ErrNameIncomplete,
// session.ErrClassEmpty) are user-correctable — the client re-prompts.
func (s *SessionService) StartSession(ctx context.Context, rawName, rawClass string) (*model.SessionView, error) {
	if len(s.bank.Tasks) == 0 {
		return nil, ErrNoTasks
	}

	var identity *model.Identity
	if s.cfg.RequireIdentity {
		id, err := session.NewIdentity(rawName, rawClass)
		if err != nil {
			return nil, err
		}
		identity = id
	} else if rawName != "" || rawClass != "" {
		// Anonymous deployments still record a volunteered identity, but
		// never block on it.
		if id, err := session.NewIdentity(rawName, rawClass); err == nil {
			identity = id
		}
	}

	sessionID := uuid.New().String()
	timer := session.StartTimer(s.cfg.DurationMinutes, s.clock)
	state := model.NewSessionState()
	state.LastSavedAt = s.clock.Now()

	if identity != nil {
		if err := s.repo.SaveIdentity(ctx, sessionID, identity); err != nil {
			return nil, fmt.Errorf("save identity: %w", err)
		}
	}
	// Timer goes last: a session with a timer blob is considered started,
	// so nothing observes a half-initialized session.
	if err := s.repo.SaveState(ctx, sessionID, state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	if err := s.repo.SaveTimer(ctx, sessionID, timer); err != nil {
		return nil, fmt.Errorf("save timer: %w", err)
	}
	if err := s.repo.AddActive(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}

	s.log.Info().
		Str("session_id", sessionID).
		Int("duration_minutes", s.cfg.DurationMinutes).
		Msg("Session started")

	return s.buildView(sessionID, identity, state, timer, nil), nil
}

// GetState restores a session after a page reload. The remaining time is
// recomputed from the persisted start instant, so reloading neither pauses
// nor extends the countdown. A stored question index beyond the current task
// list is clamped, never discarded.
func (s *SessionService) GetState(ctx context.Context, sessionID string) (*model.SessionView, error) {
	timer, err := s.repo.LoadTimer(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if timer == nil {
		return nil, ErrSessionNotFound
	}

	identity, err := s.repo.LoadIdentity(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := s.repo.LoadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = model.NewSessionState()
	}
	rec, err := s.repo.LoadSubmission(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return s.buildView(sessionID, identity, state, timer, rec), nil
}

// SaveAnswer stores one answer write-through. Rejected once the session is
// finished: the deadline makes answers read-only.
func (s *SessionService) SaveAnswer(ctx context.Context, sessionID string, taskID model.TaskID, value string) error {
	timer, err := s.repo.LoadTimer(ctx, sessionID)
	if err != nil {
		return err
	}
	if timer == nil {
		return ErrSessionNotFound
	}
	if timer.Finished || session.Remaining(timer, s.clock.Now()) <= 0 {
		return ErrSessionFinished
	}
	if s.bank.TaskByID(taskID) == nil {
		return ErrTaskNotFound
	}

	state, err := s.repo.LoadState(ctx, sessionID)
	if err != nil {
		return err
	}
	if state == nil {
		state = model.NewSessionState()
	}

	state.Answers[taskID] = model.Answer{Value: value}
	state.LastSavedAt = s.clock.Now()
	return s.repo.SaveState(ctx, sessionID, state)
}

// Navigate moves the current question index by delta (usually ±1) and
// persists it. Returns the new index, clamped to the task list.
func (s *SessionService) Navigate(ctx context.Context, sessionID string, delta int) (int, error) {
	timer, err := s.repo.LoadTimer(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if timer == nil {
		return 0, ErrSessionNotFound
	}

	state, err := s.repo.LoadState(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if state == nil {
		state = model.NewSessionState()
	}

	state.CurrentIndex = session.ClampIndex(state.CurrentIndex+delta, len(s.bank.Tasks))
	state.LastSavedAt = s.clock.Now()
	if err := s.repo.SaveState(ctx, sessionID, state); err != nil {
		return 0, err
	}
	return state.CurrentIndex, nil
}

// Reset wipes the session completely: identity, answers, timer and
// submission record go together. Afterwards the session ID is unknown and
// the device starts from the identity gate. The confirmation prompt lives in
// the handler; by the time this runs the decision is final.
func (s *SessionService) Reset(ctx context.Context, sessionID string) error {
	if err := s.repo.Reset(ctx, sessionID); err != nil {
		return err
	}
	s.log.Info().Str("session_id", sessionID).Msg("Session reset")
	return nil
}

// Progress reports how many tasks have a non-empty answer. Used by the
// partial-submission confirmation prompt.
func (s *SessionService) Progress(ctx context.Context, sessionID string) (solved, total int, err error) {
	state, err := s.repo.LoadState(ctx, sessionID)
	if err != nil {
		return 0, 0, err
	}
	if state == nil {
		state = model.NewSessionState()
	}
	return session.FilledCount(s.bank, state), len(s.bank.Tasks), nil
}

// StudentPaper returns the question bank as served to students: task
// answer keys stripped, reference texts and hints kept. Teacher mode gets
// the bank verbatim.
func (s *SessionService) StudentPaper() *model.QuestionBank {
	if s.cfg.Mode == config.ModeTeacher {
		return s.bank
	}

	stripped := &model.QuestionBank{
		Meta:  s.bank.Meta,
		Tasks: make([]model.Task, len(s.bank.Tasks)),
	}
	for i, task := range s.bank.Tasks {
		task.Answers = nil
		stripped.Tasks[i] = task
	}
	return stripped
}

func (s *SessionService) buildView(
	sessionID string,
	identity *model.Identity,
	state *model.SessionState,
	timer *model.TimerState,
	rec *model.SubmissionRecord,
) *model.SessionView {
	now := s.clock.Now()
	remaining := session.Remaining(timer, now)
	if remaining < 0 {
		remaining = 0
	}

	return &model.SessionView{
		SessionID:    sessionID,
		Identity:     identity,
		CurrentIndex: session.ClampIndex(state.CurrentIndex, len(s.bank.Tasks)),
		Answers:      state.Answers,
		RemainingMs:  remaining.Milliseconds(),
		DurationMs:   timer.DurationMs,
		Finished:     timer.Finished || session.Remaining(timer, now) <= 0,
		Submitted:    rec != nil && rec.Done,
	}
}
