package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/kontrolhq/kontrol-backend/internal/repository"
	"github.com/kontrolhq/kontrol-backend/internal/session"
	"github.com/kontrolhq/kontrol-backend/internal/submit"
	ws "github.com/kontrolhq/kontrol-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SubmitResult is what the client learns from a manual submission.
type SubmitResult struct {
	// AlreadySent means the exact same content was delivered before; the
	// call was a no-op and no duplicate left the machine.
	AlreadySent bool             `json:"already_sent"`
	ContentHash string           `json:"content_hash"`
	EarlySubmit bool             `json:"early_submit"`
	Stats       *model.PackStats `json:"stats,omitempty"`
	// MailtoURL is set when the mail transport is active: the prefilled
	// link the client opens after the pack file is saved.
	MailtoURL string `json:"mailto_url,omitempty"`
}

// SubmitService owns the single-shot submission flow: pack assembly, the
// content-hash dedup check, transport delivery and the durable submission
// record. The record is written only after the transport confirms delivery,
// so a failed send stays retryable.
type SubmitService struct {
	repo      *repository.SessionRepository
	bank      *model.QuestionBank
	transport submit.Transport
	rdb       *redis.Client
	cfg       *config.Config
	clock     session.Clock
	log       zerolog.Logger
}

// NewSubmitService creates a SubmitService.
func NewSubmitService(
	repo *repository.SessionRepository,
	bank *model.QuestionBank,
	transport submit.Transport,
	rdb *redis.Client,
	cfg *config.Config,
	clock session.Clock,
	log zerolog.Logger,
) *SubmitService {
	return &SubmitService{
		repo:      repo,
		bank:      bank,
		transport: transport,
		rdb:       rdb,
		cfg:       cfg,
		clock:     clock,
		log:       log.With().Str("component", "submit_service").Logger(),
	}
}

// SubmitNow performs a manual early submission. Only a running session may
// submit manually; after the deadline the worker owns the submission.
//
// A fully answered work is delivered as the verbatim pack. An incomplete one
// needs confirmPartial: blanks are then replaced by the "0" sentinel and a
// solved/total summary rides along so the grader sees an intentional
// partial, not a truncated upload. With EXPORT_ONLY_AFTER_FINISH set,
// incomplete work is rejected outright. Resubmitting unchanged content is a
// no-op reported as AlreadySent.
func (s *SubmitService) SubmitNow(ctx context.Context, sessionID string, confirmPartial bool) (*SubmitResult, error) {
	timer, err := s.repo.LoadTimer(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if timer == nil {
		return nil, ErrSessionNotFound
	}

	state, err := s.repo.LoadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = model.NewSessionState()
	}
	identity, err := s.repo.LoadIdentity(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A complete work goes out verbatim; an incomplete one becomes the
	// sentinel pack.
	complete := session.AllAnswered(s.bank, state)
	var pack *model.ResultPack
	if complete {
		pack = session.BuildPack(s.bank, identity, state, timer, s.clock.Now())
	} else {
		pack = session.BuildPartialPack(s.bank, identity, state, timer, s.clock.Now())
	}
	hash := session.PackHash(pack)

	// Dedup first: repeating the trigger for already-delivered content is a
	// friendly no-op even after the session has finished.
	rec, err := s.repo.LoadSubmission(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.Done && rec.ContentHash == hash {
		s.log.Info().Str("session_id", sessionID).Msg("Identical pack already sent, skipping")
		return s.result(pack, hash, true), nil
	}

	if timer.Finished || session.Remaining(timer, s.clock.Now()) <= 0 {
		return nil, ErrSessionFinished
	}
	if !complete {
		if s.cfg.ExportOnlyAfterFinish {
			return nil, ErrCompletionRequired
		}
		if !confirmPartial {
			return nil, ErrConfirmRequired
		}
	}

	if err := s.transport.Deliver(ctx, pack); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("Manual delivery failed")
		return nil, fmt.Errorf("%w: %s", ErrDeliveryFailed, err)
	}

	if err := s.repo.SaveSubmission(ctx, sessionID, &model.SubmissionRecord{
		Done:        true,
		ContentHash: hash,
		SubmittedAt: s.clock.Now(),
		EarlySubmit: pack.Timer.EarlySubmit,
	}); err != nil {
		return nil, fmt.Errorf("save submission record: %w", err)
	}

	// An early submit ends the session: freeze the timer and stop ticking.
	timer.Finished = true
	if err := s.repo.SaveTimer(ctx, sessionID, timer); err != nil {
		return nil, fmt.Errorf("finish timer: %w", err)
	}
	if err := s.repo.RemoveActive(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Deregister after submit failed")
	}
	s.publish(ctx, sessionID, ws.TimerEvent{
		Event:       ws.EventSubmitted,
		SessionID:   sessionID,
		EarlySubmit: pack.Timer.EarlySubmit,
	})

	s.log.Info().
		Str("session_id", sessionID).
		Str("transport", s.transport.Name()).
		Bool("partial", !complete).
		Msg("Pack submitted early")

	return s.result(pack, hash, false), nil
}

// ForceSubmit is the expiry-time submission, invoked by the timer worker
// after the timer is persisted as finished. It fires at most once and only
// when every task is answered — an incomplete work is never auto-sent, the
// student keeps the partial result on the review screen instead. Delivery
// failure is logged and dropped: there is nobody left to retry for.
func (s *SubmitService) ForceSubmit(ctx context.Context, sessionID string) error {
	rec, err := s.repo.LoadSubmission(ctx, sessionID)
	if err != nil {
		return err
	}
	if rec != nil && rec.Done {
		return nil
	}

	timer, err := s.repo.LoadTimer(ctx, sessionID)
	if err != nil {
		return err
	}
	if timer == nil {
		return ErrSessionNotFound
	}

	state, err := s.repo.LoadState(ctx, sessionID)
	if err != nil {
		return err
	}
	if state == nil {
		state = model.NewSessionState()
	}

	if !session.AllAnswered(s.bank, state) {
		s.log.Info().
			Str("session_id", sessionID).
			Int("solved", session.FilledCount(s.bank, state)).
			Int("total", len(s.bank.Tasks)).
			Msg("Expired with unanswered tasks, skipping forced submission")
		return nil
	}

	identity, err := s.repo.LoadIdentity(ctx, sessionID)
	if err != nil {
		return err
	}

	pack := session.BuildPack(s.bank, identity, state, timer, s.clock.Now())
	hash := session.PackHash(pack)

	if err := s.transport.Deliver(ctx, pack); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("Forced delivery failed, giving up")
		return nil
	}

	if err := s.repo.SaveSubmission(ctx, sessionID, &model.SubmissionRecord{
		Done:        true,
		ContentHash: hash,
		SubmittedAt: s.clock.Now(),
	}); err != nil {
		return fmt.Errorf("save submission record: %w", err)
	}

	s.publish(ctx, sessionID, ws.TimerEvent{
		Event:     ws.EventSubmitted,
		SessionID: sessionID,
	})

	s.log.Info().
		Str("session_id", sessionID).
		Str("transport", s.transport.Name()).
		Msg("Pack submitted at expiry")
	return nil
}

func (s *SubmitService) result(pack *model.ResultPack, hash string, alreadySent bool) *SubmitResult {
	res := &SubmitResult{
		AlreadySent: alreadySent,
		ContentHash: hash,
		EarlySubmit: pack.Timer.EarlySubmit,
		Stats:       pack.Stats,
	}
	if mt, ok := s.transport.(*submit.MailTransport); ok {
		res.MailtoURL = mt.MailtoURL(pack)
	}
	return res
}

func (s *SubmitService) publish(ctx context.Context, sessionID string, ev ws.TimerEvent) {
	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	channel := config.StoreKey.SessionEventsChannel(s.cfg.DataURL, sessionID)
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Event publish failed")
	}
}
