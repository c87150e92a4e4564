package model

// ConnectionState is the lifecycle position of the single messaging session.
type ConnectionState string

const (
	StateUninitialized ConnectionState = "uninitialized"
	StateConnecting    ConnectionState = "connecting"
	StatePairing       ConnectionState = "pairing"
	StateOpen          ConnectionState = "open"
	StateClosed        ConnectionState = "closed"
)

// ControlKind names the protocol bookkeeping messages that never reach the webhook.
type ControlKind string

const (
	ControlSenderKeyDistribution ControlKind = "senderKeyDistributionMessage"
	ControlBroadcastStatus       ControlKind = "status@broadcast"
	ControlProtocol              ControlKind = "protocolMessage"
	ControlReaction              ControlKind = "reactionMessage"
	ControlEphemeral             ControlKind = "ephemeralMessage"
)

// MediaCategory selects the blob store directory for an attachment.
type MediaCategory string

const (
	MediaCategoryDocument MediaCategory = "document"
	MediaCategoryImage    MediaCategory = "image"
)

// BrokerEventType is the SSE event name published for session lifecycle changes.
type BrokerEventType string

const (
	BrokerEventQR         BrokerEventType = "qr"
	BrokerEventConnection BrokerEventType = "connection"
)
