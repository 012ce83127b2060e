package config

import (
	"fmt"
)

// StoreKeyStruct builds the Redis keys for the per-session persisted blobs.
// Layout: "quiz:" + dataUrl + ":" + sessionID is the SessionState blob, with
// ":identity", ":timer" and ":sent" suffixes for the other three. A consumer
// that finds an unparseable blob under any of these keys treats it as absent.
type StoreKeyStruct struct{}

func NewStoreKeyStruct() *StoreKeyStruct {
	return &StoreKeyStruct{}
}

// SessionStateKey returns the key holding the answers/index blob.
func (k *StoreKeyStruct) SessionStateKey(dataURL, sessionID string) string {
	return fmt.Sprintf("quiz:%s:%s", dataURL, sessionID)
}

// IdentityKey returns the key holding the student identity blob.
func (k *StoreKeyStruct) IdentityKey(dataURL, sessionID string) string {
	return k.SessionStateKey(dataURL, sessionID) + ":identity"
}

// TimerKey returns the key holding the timer blob.
func (k *StoreKeyStruct) TimerKey(dataURL, sessionID string) string {
	return k.SessionStateKey(dataURL, sessionID) + ":timer"
}

// SentKey returns the key holding the submission record blob.
func (k *StoreKeyStruct) SentKey(dataURL, sessionID string) string {
	return k.SessionStateKey(dataURL, sessionID) + ":sent"
}

// ActiveSessionsKey returns the set of session IDs the timer worker ticks.
func (k *StoreKeyStruct) ActiveSessionsKey(dataURL string) string {
	return fmt.Sprintf("quiz:%s:active_sessions", dataURL)
}

// SessionEventsChannel returns the pub/sub channel for a session's timer
// events (ticks, reminders, expiry). The WebSocket handler subscribes here.
func (k *StoreKeyStruct) SessionEventsChannel(dataURL, sessionID string) string {
	return fmt.Sprintf("quiz:%s:%s:events", dataURL, sessionID)
}

var StoreKey = NewStoreKeyStruct()
