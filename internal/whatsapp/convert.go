package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/wagateway/gateway-server-go/internal/model"
)

func toModelJID(jid types.JID) model.JID {
	return model.JID{User: jid.User, Server: jid.Server}
}

func toProtocolJID(jid model.JID) types.JID {
	return types.NewJID(jid.User, jid.Server)
}

// NewInboundEvent builds the transport-neutral event for one received
// message. chat is passed separately so callers can substitute a resolved
// phone-number JID for a hidden-user one.
func NewInboundEvent(msg *events.Message, chat types.JID) *model.InboundEvent {
	evt := &model.InboundEvent{
		ID:        msg.Info.ID,
		Chat:      toModelJID(chat),
		Timestamp: msg.Info.Timestamp,
		FromMe:    msg.Info.IsFromMe,
		PushName:  msg.Info.PushName,
		Raw:       msg.Message,
	}
	evt.Payload = classify(evt.Chat, msg.Message, msg.IsEphemeral)
	return evt
}

// classify picks the payload variant. Status updates and messages that
// arrived inside an ephemeral wrapper are control traffic whatever they
// carry; otherwise content variants win over control fields. whatsmeow strips
// the wrapper before dispatch, so ephemeral reports it separately.
func classify(chat model.JID, msg *waE2E.Message, ephemeral bool) model.Payload {
	if msg == nil {
		return nil
	}
	if chat.IsStatusBroadcast() {
		return model.ControlPayload{Kind: model.ControlBroadcastStatus}
	}
	if ephemeral {
		return model.ControlPayload{Kind: model.ControlEphemeral}
	}

	switch {
	case msg.Conversation != nil:
		return model.TextPayload{Body: msg.GetConversation()}

	case msg.ExtendedTextMessage != nil:
		ext := msg.GetExtendedTextMessage()
		return model.TextPayload{
			Body:      ext.GetText(),
			Forwarded: isForwarded(ext.GetContextInfo()),
		}

	case msg.LocationMessage != nil:
		loc := msg.GetLocationMessage()
		return model.LocationPayload{
			Latitude:  loc.GetDegreesLatitude(),
			Longitude: loc.GetDegreesLongitude(),
			Name:      loc.GetName(),
			Address:   loc.GetAddress(),
		}

	case msg.LiveLocationMessage != nil:
		live := msg.GetLiveLocationMessage()
		return model.LiveLocationPayload{
			Latitude:  live.GetDegreesLatitude(),
			Longitude: live.GetDegreesLongitude(),
			Caption:   live.GetCaption(),
			Sequence:  live.GetSequenceNumber(),
		}

	case documentMessage(msg) != nil:
		doc := documentMessage(msg)
		return model.DocumentPayload{
			Caption:   doc.GetCaption(),
			MimeType:  doc.GetMimetype(),
			Title:     doc.GetTitle(),
			PageCount: doc.GetPageCount(),
			FileName:  doc.GetFileName(),
		}

	case msg.ImageMessage != nil:
		img := msg.GetImageMessage()
		return model.ImagePayload{
			Caption:   img.GetCaption(),
			MimeType:  img.GetMimetype(),
			ViewOnce:  img.GetViewOnce(),
			Width:     img.GetWidth(),
			Height:    img.GetHeight(),
			Forwarded: isForwarded(img.GetContextInfo()),
		}

	case msg.SenderKeyDistributionMessage != nil:
		return model.ControlPayload{Kind: model.ControlSenderKeyDistribution}
	case msg.ProtocolMessage != nil:
		return model.ControlPayload{Kind: model.ControlProtocol}
	case msg.ReactionMessage != nil:
		return model.ControlPayload{Kind: model.ControlReaction}
	case msg.EphemeralMessage != nil:
		return model.ControlPayload{Kind: model.ControlEphemeral}
	}

	kind := firstField(msg)
	if kind == "" {
		return nil
	}
	return model.UnknownPayload{Kind: kind}
}

// documentMessage also unwraps documents sent with a caption, which arrive
// inside a future-proof wrapper.
func documentMessage(msg *waE2E.Message) *waE2E.DocumentMessage {
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc
	}
	return msg.GetDocumentWithCaptionMessage().GetMessage().GetDocumentMessage()
}

func isForwarded(ctx *waE2E.ContextInfo) bool {
	return ctx.GetIsForwarded() || ctx.GetForwardingScore() > 0
}

// firstField returns the name of the first populated field, "" for an empty message.
func firstField(msg *waE2E.Message) string {
	var name string
	msg.ProtoReflect().Range(func(fd protoreflect.FieldDescriptor, _ protoreflect.Value) bool {
		name = string(fd.Name())
		return false
	})
	return name
}
