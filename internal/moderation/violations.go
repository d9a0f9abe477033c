package moderation

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownScope is returned when a violation scope name is not recognized.
var ErrUnknownScope = errors.New("unknown violation scope")

// Scope decides how violation counts are keyed.
type Scope int

const (
	// ScopeGlobal counts violations per user across every group.
	ScopeGlobal Scope = iota
	// ScopeGroup counts violations per user within each group.
	ScopeGroup
)

// ParseScope converts a config value into a Scope.
func ParseScope(name string) (Scope, error) {
	switch name {
	case "", "global":
		return ScopeGlobal, nil
	case "group":
		return ScopeGroup, nil
	default:
		return ScopeGlobal, fmt.Errorf("%w: %q", ErrUnknownScope, name)
	}
}

// String returns the config name of the scope.
func (s Scope) String() string {
	if s == ScopeGroup {
		return "group"
	}

	return "global"
}

// ViolationTracker counts link violations per user since their last removal.
// Counts live in memory only and start from zero on every process start.
type ViolationTracker struct {
	counts map[string]int
	scope  Scope
	mu     sync.Mutex
}

// NewViolationTracker creates an empty tracker.
func NewViolationTracker(scope Scope) *ViolationTracker {
	return &ViolationTracker{
		counts: make(map[string]int),
		scope:  scope,
	}
}

// Record adds one violation for the user and returns the new count.
func (t *ViolationTracker) Record(groupID, userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.key(groupID, userID)
	t.counts[key]++

	return t.counts[key]
}

// Reset forgets all violations of the user.
func (t *ViolationTracker) Reset(groupID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.counts, t.key(groupID, userID))
}

// count returns the current count for the user, zero when absent.
func (t *ViolationTracker) count(groupID, userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.counts[t.key(groupID, userID)]
}

// tracked reports whether the user has an entry at all.
func (t *ViolationTracker) tracked(groupID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.counts[t.key(groupID, userID)]

	return ok
}

// size returns the number of users with a non-zero count.
func (t *ViolationTracker) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.counts)
}

func (t *ViolationTracker) key(groupID, userID string) string {
	if t.scope == ScopeGroup {
		return groupID + "|" + userID
	}

	return userID
}
