// Package whatsapp adapts the whatsmeow client to the session manager's
// transport-neutral Dialer and Connection interfaces.
package whatsapp

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/wagateway/gateway-server-go/internal/model"
	"github.com/wagateway/gateway-server-go/internal/repository"
	"github.com/wagateway/gateway-server-go/internal/service"
)

type Dialer struct {
	creds repository.CredentialRepository
	log   waLog.Logger
}

func NewDialer(creds repository.CredentialRepository, log waLog.Logger) *Dialer {
	return &Dialer{creds: creds, log: log}
}

// Dial builds a client over the stored device. Nothing touches the network
// until Connect.
func (d *Dialer) Dial(ctx context.Context, handler func(model.SessionEvent)) (service.Connection, error) {
	device, err := d.creds.Device(ctx)
	if err != nil {
		return nil, err
	}

	client := whatsmeow.NewClient(device, d.log)
	// Reconnection is driven by the session manager.
	client.EnableAutoReconnect = false

	conn := &Connection{
		client:  client,
		handler: handler,
	}
	client.AddEventHandler(conn.handleEvent)
	return conn, nil
}

type Connection struct {
	client  *whatsmeow.Client
	handler func(model.SessionEvent)

	qrOnce sync.Once
}

// Connect opens the socket. An unpaired device streams pairing codes until
// it is linked or the codes run out.
func (c *Connection) Connect(ctx context.Context) error {
	if c.client.Store.ID == nil {
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}
		go c.watchQR(qrChan)
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (c *Connection) Disconnect() {
	c.client.Disconnect()
}

func (c *Connection) SendText(ctx context.Context, to model.JID, text string) (string, error) {
	resp, err := c.client.SendMessage(ctx, toProtocolJID(to), &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Connection) FetchMedia(ctx context.Context, evt *model.InboundEvent) (*model.MediaFile, error) {
	return fetchMedia(ctx, c.client, evt)
}

func (c *Connection) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			c.handler(model.PairingCodeEvent{Code: item.Code})
		case "success":
			return
		default:
			reason := "pairing " + item.Event
			if item.Error != nil {
				reason = fmt.Sprintf("%s: %v", reason, item.Error)
			}
			c.qrOnce.Do(func() {
				c.client.Disconnect()
				c.handler(model.ClosedEvent{Reason: reason})
			})
			return
		}
	}
}

func (c *Connection) handleEvent(rawEvt any) {
	if evt, ok := rawEvt.(*events.Message); ok {
		c.handler(model.MessageEvent{Event: c.inboundEvent(evt)})
		return
	}

	sessionEvt, ok := translateEvent(rawEvt)
	if !ok {
		return
	}
	if opened, isOpen := sessionEvt.(model.OpenedEvent); isOpen {
		if id := c.client.Store.ID; id != nil {
			opened.Phone = id.User
		}
		sessionEvt = opened
	}
	c.handler(sessionEvt)
}

func (c *Connection) inboundEvent(evt *events.Message) *model.InboundEvent {
	chat := evt.Info.Chat
	if chat.Server == types.HiddenUserServer {
		chat = c.resolveLID(chat)
	}
	return NewInboundEvent(evt, chat)
}

// resolveLID maps a hidden-user JID to the phone-number JID when the mapping is known.
func (c *Connection) resolveLID(lid types.JID) types.JID {
	lids := c.client.Store.LIDs
	if lids == nil {
		return lid
	}
	pn, err := lids.GetPNForLID(context.Background(), lid)
	if err != nil || pn.IsEmpty() {
		log.Debug().Err(err).Str("lid", lid.String()).Msg("no phone number mapping for LID")
		return lid
	}
	return pn
}

// translateEvent maps lifecycle events. Unlisted events are ignored.
func translateEvent(rawEvt any) (model.SessionEvent, bool) {
	switch evt := rawEvt.(type) {
	case *events.Connected:
		return model.OpenedEvent{}, true
	case *events.PairSuccess:
		log.Info().
			Str("jid", evt.ID.String()).
			Str("platform", evt.Platform).
			Msg("device paired")
		return model.CredentialsChangedEvent{}, true
	case *events.LoggedOut:
		return model.ClosedEvent{
			Reason:    "logged out: " + evt.Reason.String(),
			LoggedOut: true,
		}, true
	case *events.ConnectFailure:
		return model.ClosedEvent{
			Reason:    "connect failure: " + evt.Reason.String(),
			LoggedOut: evt.Reason.IsLoggedOut(),
		}, true
	case *events.StreamReplaced:
		return model.ClosedEvent{Reason: "stream replaced"}, true
	case *events.TemporaryBan:
		return model.ClosedEvent{Reason: "temporary ban: " + evt.String()}, true
	case *events.ClientOutdated:
		return model.ClosedEvent{Reason: "client outdated"}, true
	case *events.Disconnected:
		return model.ClosedEvent{Reason: "connection lost"}, true
	case *events.KeepAliveTimeout:
		log.Warn().
			Int("errorCount", evt.ErrorCount).
			Msg("keepalive timeout")
		return nil, false
	}
	return nil, false
}

// SetDeviceName sets the name shown in the phone's linked devices list.
// Must run before the first pairing.
func SetDeviceName(name string) {
	store.DeviceProps.Os = proto.String(name)
}
