package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a moderation record describes.
type Kind string

const (
	KindMessageDeleted     Kind = "message_deleted"
	KindDeleteFailed       Kind = "delete_failed"
	KindParticipantRemoved Kind = "participant_removed"
	KindRemovalFailed      Kind = "removal_failed"
	KindIntroSent          Kind = "intro_sent"
	KindIntroFailed        Kind = "intro_failed"
)

// Entry is a single moderation action or failed attempt.
type Entry struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Kind      Kind      `json:"kind"`
	GroupID   string    `json:"groupId"`
	UserID    string    `json:"userId,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Count     int       `json:"count,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewEntry creates an entry stamped with a fresh ID and the current time.
func NewEntry(kind Kind, groupID, userID string) *Entry {
	return &Entry{
		ID:      uuid.New().String(),
		Time:    time.Now().UTC(),
		Kind:    kind,
		GroupID: groupID,
		UserID:  userID,
	}
}

// WithError attaches the failure reason to the entry.
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.Error = err.Error()
	}

	return e
}

// NopRecorder discards every entry.
type NopRecorder struct{}

// Record implements moderation.Recorder.
func (NopRecorder) Record(context.Context, *Entry) error {
	return nil
}
