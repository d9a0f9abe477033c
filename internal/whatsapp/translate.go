package whatsapp

import (
	"github.com/ailab/linkguard/internal/moderation"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// translateMessage converts a live message event into the moderation view.
func translateMessage(evt *events.Message) *moderation.Message {
	chat := evt.Info.Chat.ToNonAD().String()

	sender := evt.Info.Sender.ToNonAD().String()
	if evt.Info.Sender.IsEmpty() {
		sender = chat
	}

	return &moderation.Message{
		Key: moderation.MessageKey{
			GroupID:  chat,
			SenderID: sender,
			ID:       evt.Info.ID,
		},
		Text:       messageText(evt.Message),
		HasContent: evt.Message != nil,
		FromSelf:   evt.Info.IsFromMe,
		Delivery:   moderation.DeliveryNotify,
	}
}

// messageText extracts the text of plain and extended text messages.
func messageText(msg *waE2E.Message) string {
	if text := msg.GetConversation(); text != "" {
		return text
	}

	return msg.GetExtendedTextMessage().GetText()
}

// translateGroupInfo converts the participant lists of a group update into
// one membership change per action present.
func translateGroupInfo(evt *events.GroupInfo) []*moderation.MembershipChange {
	group := evt.JID.ToNonAD().String()

	lists := []struct {
		action moderation.Action
		jids   []types.JID
	}{
		{moderation.ActionAdd, evt.Join},
		{moderation.ActionRemove, evt.Leave},
		{moderation.ActionPromote, evt.Promote},
		{moderation.ActionDemote, evt.Demote},
	}

	var changes []*moderation.MembershipChange

	for _, list := range lists {
		if len(list.jids) == 0 {
			continue
		}

		participants := make([]string, 0, len(list.jids))
		for _, jid := range list.jids {
			participants = append(participants, jid.ToNonAD().String())
		}

		changes = append(changes, &moderation.MembershipChange{
			GroupID:      group,
			Participants: participants,
			Action:       list.action,
		})
	}

	return changes
}

// selfIDs returns the phone and LID identities of a paired device.
func selfIDs(device *store.Device) []string {
	var ids []string

	if device.ID != nil && !device.ID.IsEmpty() {
		ids = append(ids, device.ID.ToNonAD().String())
	}

	if !device.LID.IsEmpty() {
		ids = append(ids, device.LID.ToNonAD().String())
	}

	return ids
}
