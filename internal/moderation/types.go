package moderation

import (
	"context"
	"strings"

	"github.com/ailab/linkguard/internal/audit"
)

// DefaultGroupSuffix marks conversation IDs that belong to group chats.
const DefaultGroupSuffix = "@g.us"

// Delivery distinguishes live messages from replayed history.
type Delivery int

const (
	// DeliveryNotify is a message delivered live to the bot.
	DeliveryNotify Delivery = iota
	// DeliveryReplay is a message replayed from history sync.
	DeliveryReplay
)

// Action is the kind of membership change reported for a group.
type Action int

const (
	ActionAdd Action = iota
	ActionRemove
	ActionPromote
	ActionDemote
)

// String returns the lowercase action name.
func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionPromote:
		return "promote"
	case ActionDemote:
		return "demote"
	default:
		return "unknown"
	}
}

// MessageKey uniquely addresses a message so it can be deleted.
type MessageKey struct {
	GroupID  string
	SenderID string
	ID       string
}

// Message is an incoming chat message as seen by the moderation core.
type Message struct {
	Key        MessageKey
	Text       string
	HasContent bool // false for protocol-only messages without a payload
	FromSelf   bool
	Delivery   Delivery
}

// MembershipChange reports that participants of a group were changed.
type MembershipChange struct {
	GroupID      string
	Participants []string
	Action       Action
}

// Participant is a group member and whether they hold any admin rank.
type Participant struct {
	ID    string
	Admin bool
}

// Messenger is the messaging platform client the core depends on.
// Every method may fail with a client-defined error.
type Messenger interface {
	SendText(ctx context.Context, groupID, text string) error
	DeleteMessage(ctx context.Context, key MessageKey) error
	FetchGroupParticipants(ctx context.Context, groupID string) ([]Participant, error)
	RemoveParticipant(ctx context.Context, groupID, userID string) error
}

// ParticipantFetcher loads the participant list of a group.
type ParticipantFetcher interface {
	FetchGroupParticipants(ctx context.Context, groupID string) ([]Participant, error)
}

// Recorder receives a record of every moderation action taken.
type Recorder interface {
	Record(ctx context.Context, entry *audit.Entry) error
}

// EventConsumer handles the platform events that drive moderation.
type EventConsumer interface {
	HandleMessage(ctx context.Context, msg *Message) Outcome
	HandleMembershipChange(ctx context.Context, change *MembershipChange)
}

// IsGroupID reports whether the conversation ID carries the given group suffix.
func IsGroupID(id, suffix string) bool {
	return suffix != "" && strings.HasSuffix(id, suffix)
}
