package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/ailab/linkguard/internal/moderation"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

var (
	// ErrInvalidID is returned when a chat or user ID cannot be parsed.
	ErrInvalidID = errors.New("invalid WhatsApp ID")
	// ErrParticipantUpdate is returned when the server rejects a participant change.
	ErrParticipantUpdate = errors.New("participant update rejected")
)

// groupAPI is the part of the protocol client used for moderation actions.
type groupAPI interface {
	SendMessage(
		ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra,
	) (whatsmeow.SendResponse, error)
	BuildRevoke(chat, sender types.JID, id types.MessageID) *waE2E.Message
	GetGroupInfo(jid types.JID) (*types.GroupInfo, error)
	UpdateGroupParticipants(
		jid types.JID, participantChanges []types.JID, action whatsmeow.ParticipantChange,
	) ([]types.GroupParticipant, error)
}

// connection is the part of the protocol client that manages the session.
type connection interface {
	connector
	Disconnect()
	AddEventHandler(handler whatsmeow.EventHandler) uint32
	RemoveEventHandler(id uint32) bool
	GetQRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error)
	Logout(ctx context.Context) error
}

// session is the stored device credentials.
type session interface {
	Delete(ctx context.Context) error
}

// Client performs moderation actions over a WhatsApp multi-device session.
type Client struct {
	conn    connection
	api     groupAPI
	device  *store.Device
	session session
	logger  *zap.Logger
}

var _ moderation.Messenger = (*Client)(nil)

// NewClient loads the first device from the session store and creates a
// protocol client for it. An unpaired device is created when the store is empty.
func NewClient(ctx context.Context, container *sqlstore.Container, clientLogger, logger *zap.Logger) (*Client, error) {
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	wa := whatsmeow.NewClient(device, NewLogger(clientLogger.Named("client")))
	wa.EnableAutoReconnect = false

	return &Client{
		conn:    wa,
		api:     wa,
		device:  device,
		session: device,
		logger:  logger.Named("whatsapp"),
	}, nil
}

// Paired reports whether the session store holds credentials for a device.
func (c *Client) Paired() bool {
	return c.device.ID != nil
}

// SelfIDs returns the identities the bot can appear under in group events.
func (c *Client) SelfIDs() []string {
	return selfIDs(c.device)
}

// SendText posts a plain text message to a group.
func (c *Client) SendText(ctx context.Context, groupID, text string) error {
	group, err := parseJID(groupID)
	if err != nil {
		return err
	}

	if _, err := c.api.SendMessage(ctx, group, &waE2E.Message{Conversation: proto.String(text)}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// DeleteMessage revokes another member's message for everyone in the group.
// The bot must be a group admin for the revoke to take effect.
func (c *Client) DeleteMessage(ctx context.Context, key moderation.MessageKey) error {
	group, err := parseJID(key.GroupID)
	if err != nil {
		return err
	}

	sender, err := parseJID(key.SenderID)
	if err != nil {
		return err
	}

	if _, err := c.api.SendMessage(ctx, group, c.api.BuildRevoke(group, sender, key.ID)); err != nil {
		return fmt.Errorf("failed to revoke message: %w", err)
	}

	return nil
}

// FetchGroupParticipants loads the current member list of a group.
func (c *Client) FetchGroupParticipants(ctx context.Context, groupID string) ([]moderation.Participant, error) {
	group, err := parseJID(groupID)
	if err != nil {
		return nil, err
	}

	info, err := c.api.GetGroupInfo(group)
	if err != nil {
		return nil, fmt.Errorf("failed to get group info: %w", err)
	}

	return participantsOf(info), nil
}

// RemoveParticipant removes a member from a group.
func (c *Client) RemoveParticipant(ctx context.Context, groupID, userID string) error {
	group, err := parseJID(groupID)
	if err != nil {
		return err
	}

	user, err := parseJID(userID)
	if err != nil {
		return err
	}

	results, err := c.api.UpdateGroupParticipants(group, []types.JID{user}, whatsmeow.ParticipantChangeRemove)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	for _, result := range results {
		if result.Error != 0 {
			return fmt.Errorf("%w: %s (code %d)", ErrParticipantUpdate, result.JID, result.Error)
		}
	}

	return nil
}

// participantsOf lists every identity of each group member. Members of
// LID-addressed groups appear under both their LID and phone number so
// senders match in either addressing mode.
func participantsOf(info *types.GroupInfo) []moderation.Participant {
	participants := make([]moderation.Participant, 0, len(info.Participants))
	seen := make(map[string]struct{}, len(info.Participants))

	for _, p := range info.Participants {
		admin := p.IsAdmin || p.IsSuperAdmin

		for _, jid := range []types.JID{p.JID, p.LID, p.PhoneNumber} {
			if jid.IsEmpty() {
				continue
			}

			id := jid.ToNonAD().String()
			if _, ok := seen[id]; ok {
				continue
			}

			seen[id] = struct{}{}
			participants = append(participants, moderation.Participant{ID: id, Admin: admin})
		}
	}

	return participants
}

// parseJID parses a chat or user ID string.
func parseJID(id string) (types.JID, error) {
	jid, err := types.ParseJID(id)
	if err != nil {
		return types.EmptyJID, fmt.Errorf("%w: %q: %w", ErrInvalidID, id, err)
	}

	if jid.IsEmpty() {
		return types.EmptyJID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return jid, nil
}
