package model

import "time"

// InboundEvent is one message received on the session. Immutable once built.
type InboundEvent struct {
	ID        string
	Chat      JID
	Timestamp time.Time
	FromMe    bool
	PushName  string
	Payload   Payload

	// Raw is the transport's protocol message, kept so media can be fetched later.
	Raw any
}

// HasContent reports whether the protocol delivered any message body.
func (e *InboundEvent) HasContent() bool {
	return e != nil && e.Payload != nil
}

// Payload is the closed set of inbound message variants.
type Payload interface {
	payload()
}

type TextPayload struct {
	Body      string
	Forwarded bool
}

type LocationPayload struct {
	Latitude  float64
	Longitude float64
	Name      string
	Address   string
}

type LiveLocationPayload struct {
	Latitude  float64
	Longitude float64
	Caption   string
	Sequence  int64
}

type DocumentPayload struct {
	Caption   string
	MimeType  string
	Title     string
	PageCount uint32
	FileName  string
}

type ImagePayload struct {
	Caption   string
	MimeType  string
	ViewOnce  bool
	Width     uint32
	Height    uint32
	Forwarded bool
}

type ControlPayload struct {
	Kind ControlKind
}

// UnknownPayload carries a message kind the gateway does not map.
type UnknownPayload struct {
	Kind string
}

func (TextPayload) payload()         {}
func (LocationPayload) payload()     {}
func (LiveLocationPayload) payload() {}
func (DocumentPayload) payload()     {}
func (ImagePayload) payload()        {}
func (ControlPayload) payload()      {}
func (UnknownPayload) payload()      {}

// MediaFile is a downloaded and decrypted attachment.
type MediaFile struct {
	Data     []byte
	FileName string
	MimeType string
}
