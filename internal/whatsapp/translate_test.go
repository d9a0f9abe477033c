package whatsapp

import (
	"testing"

	"github.com/ailab/linkguard/internal/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func groupMessage(sender types.JID, msg *waE2E.Message) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:    groupJID,
				Sender:  sender,
				IsGroup: true,
			},
			ID: "3EB0ABCDEF",
		},
		Message: msg,
	}
}

func TestTranslateMessage(t *testing.T) {
	t.Parallel()

	deviceSender := phoneJID
	deviceSender.Device = 12

	tests := []struct {
		name       string
		evt        *events.Message
		wantSender string
		wantText   string
		hasContent bool
	}{
		{
			name:       "conversation text",
			evt:        groupMessage(phoneJID, &waE2E.Message{Conversation: proto.String("see https://x.io")}),
			wantSender: "15550001111@s.whatsapp.net",
			wantText:   "see https://x.io",
			hasContent: true,
		},
		{
			name: "extended text",
			evt: groupMessage(lidJID, &waE2E.Message{
				ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("http://a.b")},
			}),
			wantSender: "987654321@lid",
			wantText:   "http://a.b",
			hasContent: true,
		},
		{
			name:       "device suffix dropped",
			evt:        groupMessage(deviceSender, &waE2E.Message{Conversation: proto.String("hi")}),
			wantSender: "15550001111@s.whatsapp.net",
			wantText:   "hi",
			hasContent: true,
		},
		{
			name:       "image without caption",
			evt:        groupMessage(phoneJID, &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}),
			wantSender: "15550001111@s.whatsapp.net",
			hasContent: true,
		},
		{
			name:       "no payload",
			evt:        groupMessage(phoneJID, nil),
			wantSender: "15550001111@s.whatsapp.net",
		},
		{
			name:       "sender falls back to chat",
			evt:        groupMessage(types.EmptyJID, &waE2E.Message{Conversation: proto.String("x")}),
			wantSender: groupJID.String(),
			wantText:   "x",
			hasContent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := translateMessage(tt.evt)
			assert.Equal(t, groupJID.String(), msg.Key.GroupID)
			assert.Equal(t, tt.wantSender, msg.Key.SenderID)
			assert.Equal(t, "3EB0ABCDEF", msg.Key.ID)
			assert.Equal(t, tt.wantText, msg.Text)
			assert.Equal(t, tt.hasContent, msg.HasContent)
			assert.Equal(t, moderation.DeliveryNotify, msg.Delivery)
			assert.False(t, msg.FromSelf)
		})
	}
}

func TestTranslateMessageFromSelf(t *testing.T) {
	t.Parallel()

	evt := groupMessage(phoneJID, &waE2E.Message{Conversation: proto.String("https://mine.io")})
	evt.Info.IsFromMe = true

	assert.True(t, translateMessage(evt).FromSelf)
}

func TestTranslateGroupInfo(t *testing.T) {
	t.Parallel()

	other := types.NewJID("15550002222", types.DefaultUserServer)

	changes := translateGroupInfo(&events.GroupInfo{
		JID:     groupJID,
		Join:    []types.JID{other},
		Promote: []types.JID{phoneJID, lidJID},
	})
	require.Len(t, changes, 2)

	assert.Equal(t, moderation.ActionAdd, changes[0].Action)
	assert.Equal(t, []string{"15550002222@s.whatsapp.net"}, changes[0].Participants)
	assert.Equal(t, groupJID.String(), changes[0].GroupID)

	assert.Equal(t, moderation.ActionPromote, changes[1].Action)
	assert.Equal(t, []string{"15550001111@s.whatsapp.net", "987654321@lid"}, changes[1].Participants)
}

func TestTranslateGroupInfoWithoutMembership(t *testing.T) {
	t.Parallel()

	name := &types.GroupName{Name: "renamed"}
	assert.Empty(t, translateGroupInfo(&events.GroupInfo{JID: groupJID, Name: name}))
}

func TestSelfIDs(t *testing.T) {
	t.Parallel()

	device := phoneJID
	device.Device = 3

	assert.Equal(t,
		[]string{"15550001111@s.whatsapp.net", "987654321@lid"},
		selfIDs(&store.Device{ID: &device, LID: lidJID}))

	assert.Equal(t,
		[]string{"15550001111@s.whatsapp.net"},
		selfIDs(&store.Device{ID: &device}))

	assert.Empty(t, selfIDs(&store.Device{}))
}
