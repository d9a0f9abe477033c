package moderation_test

import (
	"context"
	"errors"
	"sync"

	"github.com/ailab/linkguard/internal/audit"
	"github.com/ailab/linkguard/internal/moderation"
)

var (
	errFetch  = errors.New("group metadata unavailable")
	errDelete = errors.New("delete rejected")
	errRemove = errors.New("remove rejected")
	errSend   = errors.New("send rejected")
)

type removal struct {
	GroupID string
	UserID  string
}

type sentText struct {
	GroupID string
	Text    string
}

// fakeMessenger records every call and fails on demand.
type fakeMessenger struct {
	mu           sync.Mutex
	participants map[string][]moderation.Participant
	fetches      map[string]int
	deleted      []moderation.MessageKey
	removed      []removal
	sent         []sentText
	fetchErr     error
	deleteErr    error
	removeErr    error
	sendErr      error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		participants: make(map[string][]moderation.Participant),
		fetches:      make(map[string]int),
	}
}

func (f *fakeMessenger) setParticipants(groupID string, participants ...moderation.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.participants[groupID] = participants
}

func (f *fakeMessenger) SendText(_ context.Context, groupID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}

	f.sent = append(f.sent, sentText{GroupID: groupID, Text: text})

	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, key moderation.MessageKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}

	f.deleted = append(f.deleted, key)

	return nil
}

func (f *fakeMessenger) FetchGroupParticipants(_ context.Context, groupID string) ([]moderation.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches[groupID]++

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	return f.participants[groupID], nil
}

func (f *fakeMessenger) RemoveParticipant(_ context.Context, groupID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.removeErr != nil {
		return f.removeErr
	}

	f.removed = append(f.removed, removal{GroupID: groupID, UserID: userID})

	return nil
}

func (f *fakeMessenger) fetchCount(groupID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetches[groupID]
}

// memRecorder keeps audit entries in memory.
type memRecorder struct {
	mu      sync.Mutex
	entries []*audit.Entry
	err     error
}

func (r *memRecorder) Record(_ context.Context, entry *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.entries = append(r.entries, entry)

	return nil
}

func (r *memRecorder) kinds() []audit.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]audit.Kind, 0, len(r.entries))
	for _, e := range r.entries {
		kinds = append(kinds, e.Kind)
	}

	return kinds
}
