package model

import "time"

// SessionEvent is a transport-neutral notification delivered to the session manager.
type SessionEvent interface {
	sessionEvent()
}

// PairingCodeEvent means the device is not linked and Code must be scanned.
type PairingCodeEvent struct {
	Code string
}

type OpenedEvent struct {
	// Phone is the linked account number, when known.
	Phone string
}

// ClosedEvent reports the end of a connection. LoggedOut is set when the
// remote side revoked the linked device.
type ClosedEvent struct {
	Reason    string
	LoggedOut bool
}

type MessageEvent struct {
	Event *InboundEvent
}

// CredentialsChangedEvent asks for the device state to be persisted.
type CredentialsChangedEvent struct{}

func (PairingCodeEvent) sessionEvent()        {}
func (OpenedEvent) sessionEvent()             {}
func (ClosedEvent) sessionEvent()             {}
func (MessageEvent) sessionEvent()            {}
func (CredentialsChangedEvent) sessionEvent() {}

// SessionStatus is a point-in-time view of the session for the HTTP API.
type SessionStatus struct {
	State           ConnectionState `json:"state"`
	Connected       bool            `json:"connected"`
	HasPairingCode  bool            `json:"hasPairingCode"`
	PairingIssuedAt *time.Time      `json:"pairingIssuedAt,omitempty"`
	Generation      uint64          `json:"generation"`
	Phone           string          `json:"phone,omitempty"`
}

// BrokerEvent is published to /events subscribers.
type BrokerEvent struct {
	Type BrokerEventType `json:"type"`
	Data any             `json:"data"`
}
