package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// SessionRepository persists the four per-session blobs (state, identity,
// timer, submission record) in Redis. Each write replaces the whole blob
// under a fixed key — there is exactly one writer per session, so no
// transactions or merge logic are needed.
//
// Read failure semantics: a missing or unparseable blob is reported as
// absent (nil, nil), never as an error. Corrupted state degrades to a cold
// start instead of a crash.
type SessionRepository struct {
	rdb     *redis.Client
	dataURL string
}

// NewSessionRepository creates a SessionRepository scoped to one quiz
// variant URL.
func NewSessionRepository(rdb *redis.Client, dataURL string) *SessionRepository {
	return &SessionRepository{rdb: rdb, dataURL: dataURL}
}

func (r *SessionRepository) saveJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := r.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// loadJSON reads a blob into dst. Returns false when the key is absent or
// the stored value does not parse.
func (r *SessionRepository) loadJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, nil // corrupted blob == absent
	}
	return true, nil
}

// SaveState overwrites the answers/index blob.
func (r *SessionRepository) SaveState(ctx context.Context, sessionID string, state *model.SessionState) error {
	return r.saveJSON(ctx, config.StoreKey.SessionStateKey(r.dataURL, sessionID), state)
}

// LoadState returns the stored session state, or nil for a fresh session.
func (r *SessionRepository) LoadState(ctx context.Context, sessionID string) (*model.SessionState, error) {
	var state model.SessionState
	ok, err := r.loadJSON(ctx, config.StoreKey.SessionStateKey(r.dataURL, sessionID), &state)
	if err != nil || !ok {
		return nil, err
	}
	if state.Answers == nil {
		state.Answers = make(map[model.TaskID]model.Answer)
	}
	return &state, nil
}

// SaveIdentity stores the confirmed identity.
func (r *SessionRepository) SaveIdentity(ctx context.Context, sessionID string, id *model.Identity) error {
	return r.saveJSON(ctx, config.StoreKey.IdentityKey(r.dataURL, sessionID), id)
}

// LoadIdentity returns the stored identity, or nil when the gate has not
// been passed.
func (r *SessionRepository) LoadIdentity(ctx context.Context, sessionID string) (*model.Identity, error) {
	var id model.Identity
	ok, err := r.loadJSON(ctx, config.StoreKey.IdentityKey(r.dataURL, sessionID), &id)
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

// SaveTimer overwrites the timer blob.
func (r *SessionRepository) SaveTimer(ctx context.Context, sessionID string, t *model.TimerState) error {
	return r.saveJSON(ctx, config.StoreKey.TimerKey(r.dataURL, sessionID), t)
}

// LoadTimer returns the stored timer, or nil when no timer has started.
func (r *SessionRepository) LoadTimer(ctx context.Context, sessionID string) (*model.TimerState, error) {
	var t model.TimerState
	ok, err := r.loadJSON(ctx, config.StoreKey.TimerKey(r.dataURL, sessionID), &t)
	if err != nil || !ok {
		return nil, err
	}
	if t.RemindersFired == nil {
		t.RemindersFired = make(map[string]bool)
	}
	return &t, nil
}

// SaveSubmission stores the submission record. Called only after a
// successful transport delivery.
func (r *SessionRepository) SaveSubmission(ctx context.Context, sessionID string, rec *model.SubmissionRecord) error {
	return r.saveJSON(ctx, config.StoreKey.SentKey(r.dataURL, sessionID), rec)
}

// LoadSubmission returns the stored submission record, or nil.
func (r *SessionRepository) LoadSubmission(ctx context.Context, sessionID string) (*model.SubmissionRecord, error) {
	var rec model.SubmissionRecord
	ok, err := r.loadJSON(ctx, config.StoreKey.SentKey(r.dataURL, sessionID), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// Reset deletes all four blobs and deregisters the session from the timer
// worker in one shot. Partial reset is disallowed: a stale timer combined
// with fresh answers would break the started-once invariant.
func (r *SessionRepository) Reset(ctx context.Context, sessionID string) error {
	keys := []string{
		config.StoreKey.SessionStateKey(r.dataURL, sessionID),
		config.StoreKey.IdentityKey(r.dataURL, sessionID),
		config.StoreKey.TimerKey(r.dataURL, sessionID),
		config.StoreKey.SentKey(r.dataURL, sessionID),
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	if err := r.rdb.SRem(ctx, config.StoreKey.ActiveSessionsKey(r.dataURL), sessionID).Err(); err != nil {
		return fmt.Errorf("deregister session: %w", err)
	}
	return nil
}

// AddActive registers a session with the timer worker.
func (r *SessionRepository) AddActive(ctx context.Context, sessionID string) error {
	return r.rdb.SAdd(ctx, config.StoreKey.ActiveSessionsKey(r.dataURL), sessionID).Err()
}

// RemoveActive deregisters an expired or submitted session.
func (r *SessionRepository) RemoveActive(ctx context.Context, sessionID string) error {
	return r.rdb.SRem(ctx, config.StoreKey.ActiveSessionsKey(r.dataURL), sessionID).Err()
}

// ActiveSessions lists the sessions the timer worker should tick.
func (r *SessionRepository) ActiveSessions(ctx context.Context) ([]string, error) {
	return r.rdb.SMembers(ctx, config.StoreKey.ActiveSessionsKey(r.dataURL)).Result()
}
