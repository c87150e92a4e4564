package whatsapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/wagateway/gateway-server-go/internal/model"
)

var directChat = types.NewJID("5511999999999", types.DefaultUserServer)

func infoFor(chat types.JID) types.MessageInfo {
	return types.MessageInfo{
		MessageSource: types.MessageSource{Chat: chat, Sender: chat},
		ID:            "3EB0C767D26A1D7F",
		PushName:      "Ana",
		Timestamp:     time.Unix(1700000000, 0),
	}
}

func TestNewInboundEvent(t *testing.T) {
	msg := &waE2E.Message{Conversation: proto.String("hello")}
	evt := NewInboundEvent(&events.Message{Info: infoFor(directChat), Message: msg}, directChat)

	assert.Equal(t, "3EB0C767D26A1D7F", evt.ID)
	assert.Equal(t, model.JID{User: "5511999999999", Server: model.UserServer}, evt.Chat)
	assert.Equal(t, "Ana", evt.PushName)
	assert.False(t, evt.FromMe)
	assert.Equal(t, time.Unix(1700000000, 0), evt.Timestamp)
	assert.Same(t, msg, evt.Raw)
	assert.Equal(t, model.TextPayload{Body: "hello"}, evt.Payload)
}

func TestClassify(t *testing.T) {
	chat := toModelJID(directChat)

	tests := []struct {
		name string
		msg  *waE2E.Message
		want model.Payload
	}{
		{
			name: "nil message has no content",
			msg:  nil,
			want: nil,
		},
		{
			name: "empty message has no content",
			msg:  &waE2E.Message{},
			want: nil,
		},
		{
			name: "extended text with forwarding score",
			msg: &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
				Text:        proto.String("see link"),
				ContextInfo: &waE2E.ContextInfo{ForwardingScore: proto.Uint32(2)},
			}},
			want: model.TextPayload{Body: "see link", Forwarded: true},
		},
		{
			name: "location",
			msg: &waE2E.Message{LocationMessage: &waE2E.LocationMessage{
				DegreesLatitude:  proto.Float64(-23.55),
				DegreesLongitude: proto.Float64(-46.63),
				Address:          proto.String("Av. Paulista"),
			}},
			want: model.LocationPayload{Latitude: -23.55, Longitude: -46.63, Address: "Av. Paulista"},
		},
		{
			name: "live location",
			msg: &waE2E.Message{LiveLocationMessage: &waE2E.LiveLocationMessage{
				DegreesLatitude:  proto.Float64(1.5),
				DegreesLongitude: proto.Float64(2.5),
				Caption:          proto.String("on my way"),
				SequenceNumber:   proto.Int64(42),
			}},
			want: model.LiveLocationPayload{Latitude: 1.5, Longitude: 2.5, Caption: "on my way", Sequence: 42},
		},
		{
			name: "document",
			msg: &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
				Mimetype:  proto.String("application/pdf"),
				Title:     proto.String("invoice"),
				PageCount: proto.Uint32(3),
				FileName:  proto.String("invoice.pdf"),
			}},
			want: model.DocumentPayload{MimeType: "application/pdf", Title: "invoice", PageCount: 3, FileName: "invoice.pdf"},
		},
		{
			name: "document with caption wrapper",
			msg: &waE2E.Message{DocumentWithCaptionMessage: &waE2E.FutureProofMessage{
				Message: &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
					Caption:  proto.String("signed"),
					Mimetype: proto.String("application/pdf"),
				}},
			}},
			want: model.DocumentPayload{Caption: "signed", MimeType: "application/pdf"},
		},
		{
			name: "image",
			msg: &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
				Caption:     proto.String("selfie"),
				Mimetype:    proto.String("image/jpeg"),
				ViewOnce:    proto.Bool(true),
				Width:       proto.Uint32(640),
				Height:      proto.Uint32(480),
				ContextInfo: &waE2E.ContextInfo{IsForwarded: proto.Bool(true)},
			}},
			want: model.ImagePayload{Caption: "selfie", MimeType: "image/jpeg", ViewOnce: true, Width: 640, Height: 480, Forwarded: true},
		},
		{
			name: "content wins over sender key distribution",
			msg: &waE2E.Message{
				Conversation:                 proto.String("hi group"),
				SenderKeyDistributionMessage: &waE2E.SenderKeyDistributionMessage{},
			},
			want: model.TextPayload{Body: "hi group"},
		},
		{
			name: "sender key distribution alone",
			msg:  &waE2E.Message{SenderKeyDistributionMessage: &waE2E.SenderKeyDistributionMessage{}},
			want: model.ControlPayload{Kind: model.ControlSenderKeyDistribution},
		},
		{
			name: "protocol message",
			msg:  &waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{}},
			want: model.ControlPayload{Kind: model.ControlProtocol},
		},
		{
			name: "reaction",
			msg:  &waE2E.Message{ReactionMessage: &waE2E.ReactionMessage{Text: proto.String("👍")}},
			want: model.ControlPayload{Kind: model.ControlReaction},
		},
		{
			name: "unmapped kind",
			msg:  &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}},
			want: model.UnknownPayload{Kind: "stickerMessage"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(chat, tc.msg, false))
		})
	}
}

func TestClassify_StatusBroadcast(t *testing.T) {
	status := model.ParseJID("status@broadcast")
	got := classify(status, &waE2E.Message{Conversation: proto.String("story")}, false)
	require.NotNil(t, got)
	assert.Equal(t, model.ControlPayload{Kind: model.ControlBroadcastStatus}, got)
}

func TestInboundEvent_Ephemeral(t *testing.T) {
	t.Run("unwrapped ephemeral message is control traffic", func(t *testing.T) {
		evt := &events.Message{
			Info: infoFor(directChat),
			RawMessage: &waE2E.Message{
				EphemeralMessage: &waE2E.FutureProofMessage{
					Message: &waE2E.Message{Conversation: proto.String("hi")},
				},
			},
		}
		evt.UnwrapRaw()
		require.True(t, evt.IsEphemeral)
		require.Equal(t, "hi", evt.Message.GetConversation())

		got := (&Connection{}).inboundEvent(evt)

		assert.Equal(t, model.ControlPayload{Kind: model.ControlEphemeral}, got.Payload)
	})

	t.Run("plain message keeps its content", func(t *testing.T) {
		evt := &events.Message{
			Info:       infoFor(directChat),
			RawMessage: &waE2E.Message{Conversation: proto.String("hi")},
		}
		evt.UnwrapRaw()

		got := (&Connection{}).inboundEvent(evt)

		assert.Equal(t, model.TextPayload{Body: "hi"}, got.Payload)
	})
}

func TestProtocolJIDRoundTrip(t *testing.T) {
	jid := model.UserJID("5511999999999")
	assert.Equal(t, "5511999999999@s.whatsapp.net", toProtocolJID(jid).String())
	assert.Equal(t, jid, toModelJID(toProtocolJID(jid)))
}
