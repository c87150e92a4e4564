package service

import "github.com/wagateway/gateway-server-go/internal/model"

// Discard reasons, logged at debug level.
const (
	discardNoContent  = "no content"
	discardFromMe     = "self-originated"
	discardControl    = "control message"
	discardGroup      = "group chat"
	discardNewsletter = "newsletter"
	discardBroadcast  = "broadcast"
)

var ignoredControlKinds = map[model.ControlKind]bool{
	model.ControlSenderKeyDistribution: true,
	model.ControlBroadcastStatus:       true,
	model.ControlProtocol:              true,
	model.ControlReaction:              true,
	model.ControlEphemeral:             true,
}

// discardReason returns why evt must not reach the webhook, or "" to keep it.
func discardReason(evt *model.InboundEvent) string {
	if !evt.HasContent() {
		return discardNoContent
	}
	if evt.FromMe {
		return discardFromMe
	}
	if ctrl, ok := evt.Payload.(model.ControlPayload); ok && ignoredControlKinds[ctrl.Kind] {
		return discardControl
	}
	switch {
	case evt.Chat.IsGroup():
		return discardGroup
	case evt.Chat.IsNewsletter():
		return discardNewsletter
	case evt.Chat.IsBroadcast():
		return discardBroadcast
	}
	return ""
}
