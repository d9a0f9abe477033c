package whatsapp

import (
	"context"
	"errors"
	"sync"

	"github.com/ailab/linkguard/internal/moderation"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

var errServer = errors.New("server error")

var (
	groupJID = types.NewJID("120363000000000001", types.GroupServer)
	phoneJID = types.NewJID("15550001111", types.DefaultUserServer)
	lidJID   = types.NewJID("987654321", types.HiddenUserServer)
)

type revokeCall struct {
	chat   types.JID
	sender types.JID
	id     types.MessageID
}

// fakeAPI records moderation requests and injects failures.
type fakeAPI struct {
	mu        sync.Mutex
	sent      []*waE2E.Message
	sentTo    []types.JID
	revokes   []revokeCall
	updates   [][]types.JID
	groupInfo *types.GroupInfo
	results   []types.GroupParticipant
	sendErr   error
	infoErr   error
	updateErr error
}

func (f *fakeAPI) SendMessage(
	_ context.Context, to types.JID, message *waE2E.Message, _ ...whatsmeow.SendRequestExtra,
) (whatsmeow.SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return whatsmeow.SendResponse{}, f.sendErr
	}

	f.sent = append(f.sent, message)
	f.sentTo = append(f.sentTo, to)

	return whatsmeow.SendResponse{}, nil
}

func (f *fakeAPI) BuildRevoke(chat, sender types.JID, id types.MessageID) *waE2E.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.revokes = append(f.revokes, revokeCall{chat: chat, sender: sender, id: id})

	return &waE2E.Message{Conversation: proto.String("revoke:" + id)}
}

func (f *fakeAPI) GetGroupInfo(_ types.JID) (*types.GroupInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}

	return f.groupInfo, nil
}

func (f *fakeAPI) UpdateGroupParticipants(
	_ types.JID, participantChanges []types.JID, _ whatsmeow.ParticipantChange,
) ([]types.GroupParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}

	f.updates = append(f.updates, participantChanges)

	return f.results, nil
}

func newTestClient(api groupAPI, device *store.Device) *Client {
	if device == nil {
		device = &store.Device{}
	}

	return &Client{
		api:    api,
		device: device,
		logger: zap.NewNop(),
	}
}

// fakeConsumer records the events handed to moderation.
type fakeConsumer struct {
	mu       sync.Mutex
	messages []*moderation.Message
	changes  []*moderation.MembershipChange
	self     []string
}

func (f *fakeConsumer) HandleMessage(_ context.Context, msg *moderation.Message) moderation.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, msg)

	return moderation.OutcomeIgnored
}

func (f *fakeConsumer) HandleMembershipChange(_ context.Context, change *moderation.MembershipChange) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.changes = append(f.changes, change)
}

func (f *fakeConsumer) SetSelf(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.self = ids
}

func (f *fakeConsumer) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.messages)
}

// fakeConnection scripts Connect results and captures the event handler.
type fakeConnection struct {
	mu          sync.Mutex
	handler     whatsmeow.EventHandler
	connectErrs []error
	connects    int
	disconnects int
	qr          chan whatsmeow.QRChannelItem
}

func (f *fakeConnection) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connects++

	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]

		return err
	}

	return nil
}

func (f *fakeConnection) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disconnects++
}

func (f *fakeConnection) AddEventHandler(handler whatsmeow.EventHandler) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handler = handler

	return 1
}

func (f *fakeConnection) RemoveEventHandler(_ uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handler = nil

	return true
}

func (f *fakeConnection) GetQRChannel(_ context.Context) (<-chan whatsmeow.QRChannelItem, error) {
	return f.qr, nil
}

func (f *fakeConnection) Logout(_ context.Context) error {
	return nil
}

func (f *fakeConnection) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connects
}

func (f *fakeConnection) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.disconnects
}

// emit delivers evt the way the receive loop would.
func (f *fakeConnection) emit(evt any) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	handler(evt)
}

// fakeSession counts credential deletions.
type fakeSession struct {
	mu      sync.Mutex
	deletes int
}

func (f *fakeSession) Delete(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes++

	return nil
}

func (f *fakeSession) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.deletes
}
