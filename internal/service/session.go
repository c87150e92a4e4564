package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/wagateway/gateway-server-go/internal/audit"
	apperrors "github.com/wagateway/gateway-server-go/internal/errors"
	"github.com/wagateway/gateway-server-go/internal/model"
	"github.com/wagateway/gateway-server-go/internal/util"
)

// Connection is one live link to the messaging network.
type Connection interface {
	Connect(ctx context.Context) error
	Disconnect()
	SendText(ctx context.Context, to model.JID, text string) (string, error)
	MediaFetcher
}

// Dialer builds a connection over the persisted credentials. handler
// receives every event the connection produces.
type Dialer interface {
	Dial(ctx context.Context, handler func(model.SessionEvent)) (Connection, error)
}

type CredentialStore interface {
	Persist(ctx context.Context) error
	Wipe(ctx context.Context) error
}

type RecordSink interface {
	Forward(record *model.Record)
}

type SessionConfig struct {
	Name           string
	MediaWorkers   int
	MessageTimeout time.Duration
	ReconnectDelay time.Duration
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
}

// ConnectionData is the payload of a "connection" broker event.
type ConnectionData struct {
	State     model.ConnectionState `json:"state"`
	Reason    string                `json:"reason,omitempty"`
	LoggedOut bool                  `json:"loggedOut,omitempty"`
	Phone     string                `json:"phone,omitempty"`
}

type SendResult struct {
	MessageID string `json:"messageId"`
	Phone     string `json:"phone"`
}

// liveConn tags a connection with its generation. closed flips once, on
// the first close event.
type liveConn struct {
	conn       Connection
	generation uint64
	closed     atomic.Bool
}

// SessionManager owns the single session: it connects, reconnects after
// every close, wipes credentials on logout and routes inbound messages.
type SessionManager struct {
	cfg        SessionConfig
	dialer     Dialer
	creds      CredentialStore
	pairing    *PairingService
	normalizer *Normalizer
	sink       RecordSink
	events     EventPublisher
	workers    *semaphore.Weighted

	startMu sync.Mutex

	mu         sync.RWMutex
	current    *liveConn
	generation uint64
	state      model.ConnectionState
	phone      string
	baseCtx    context.Context

	wg sync.WaitGroup
}

func NewSessionManager(
	cfg SessionConfig,
	dialer Dialer,
	creds CredentialStore,
	pairing *PairingService,
	normalizer *Normalizer,
	sink RecordSink,
	events EventPublisher,
) *SessionManager {
	if cfg.MediaWorkers <= 0 {
		cfg.MediaWorkers = 1
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}

	return &SessionManager{
		cfg:        cfg,
		dialer:     dialer,
		creds:      creds,
		pairing:    pairing,
		normalizer: normalizer,
		sink:       sink,
		events:     events,
		workers:    semaphore.NewWeighted(int64(cfg.MediaWorkers)),
		state:      model.StateUninitialized,
		baseCtx:    context.Background(),
	}
}

// Run starts the session, retrying failed dials until one succeeds or ctx
// ends. ctx also bounds every later reconnect.
func (m *SessionManager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()

	return m.startWithRetry(ctx)
}

// Start replaces any existing connection with a fresh one.
func (m *SessionManager) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	m.mu.Lock()
	m.generation++
	lc := &liveConn{generation: m.generation}
	old := m.current
	m.current = nil
	m.state = model.StateConnecting
	m.mu.Unlock()

	if old != nil && old.closed.CompareAndSwap(false, true) {
		old.conn.Disconnect()
	}

	logger := log.With().
		Str("session", m.cfg.Name).
		Uint64("generation", lc.generation).
		Logger()
	logger.Info().Msg("starting session")

	conn, err := m.dialer.Dial(ctx, func(evt model.SessionEvent) {
		m.handle(lc, evt)
	})
	if err != nil {
		m.setState(model.StateClosed)
		return err
	}
	lc.conn = conn

	m.mu.Lock()
	m.current = lc
	m.mu.Unlock()

	if err := conn.Connect(ctx); err != nil {
		// A close event raised during Connect already owns the restart.
		if !lc.closed.CompareAndSwap(false, true) {
			log.Debug().Err(err).Uint64("generation", lc.generation).Msg("connect failed after close")
			return nil
		}
		m.setState(model.StateClosed)
		return err
	}
	return nil
}

func (m *SessionManager) startWithRetry(ctx context.Context) error {
	backoff := m.cfg.MinBackoff
	for {
		err := m.Start(ctx)
		if err == nil {
			return nil
		}

		log.Error().
			Err(err).
			Str("session", m.cfg.Name).
			Dur("retryIn", backoff).
			Msg("session start failed")

		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
		if backoff > m.cfg.MaxBackoff {
			backoff = m.cfg.MaxBackoff
		}
	}
}

func (m *SessionManager) handle(lc *liveConn, evt model.SessionEvent) {
	if !m.isCurrent(lc) {
		log.Debug().
			Uint64("generation", lc.generation).
			Msgf("ignoring %T from replaced connection", evt)
		return
	}

	ctx := m.context()

	switch e := evt.(type) {
	case model.PairingCodeEvent:
		m.setState(model.StatePairing)
		if m.pairing != nil {
			m.pairing.Publish(ctx, e.Code)
		}

	case model.OpenedEvent:
		m.mu.Lock()
		m.state = model.StateOpen
		if e.Phone != "" {
			m.phone = e.Phone
		}
		phone := m.phone
		m.mu.Unlock()

		log.Info().
			Str("session", m.cfg.Name).
			Uint64("generation", lc.generation).
			Msg("connection opened")
		audit.Log(ctx, audit.Event{
			Type:    audit.EventSessionOpen,
			Session: m.cfg.Name,
			Phone:   util.MaskPhone(phone),
		})
		m.publish(ctx, ConnectionData{State: model.StateOpen, Phone: phone})

	case model.ClosedEvent:
		m.handleClosed(ctx, lc, e)

	case model.MessageEvent:
		m.dispatch(ctx, e.Event, lc.conn)

	case model.CredentialsChangedEvent:
		if err := m.creds.Persist(ctx); err != nil {
			log.Error().Err(err).Str("session", m.cfg.Name).Msg("failed to persist credentials")
			return
		}
		audit.Log(ctx, audit.Event{Type: audit.EventDevicePaired, Session: m.cfg.Name})
	}
}

func (m *SessionManager) handleClosed(ctx context.Context, lc *liveConn, e model.ClosedEvent) {
	if !lc.closed.CompareAndSwap(false, true) {
		return
	}

	m.setState(model.StateClosed)
	log.Warn().
		Str("session", m.cfg.Name).
		Uint64("generation", lc.generation).
		Str("reason", e.Reason).
		Bool("loggedOut", e.LoggedOut).
		Msg("connection closed, reconnecting")
	m.publish(ctx, ConnectionData{State: model.StateClosed, Reason: e.Reason, LoggedOut: e.LoggedOut})

	if e.LoggedOut {
		audit.Log(ctx, audit.Event{
			Type:    audit.EventSessionLogout,
			Session: m.cfg.Name,
			Details: map[string]interface{}{"reason": e.Reason},
		})
		if err := m.creds.Wipe(ctx); err != nil {
			log.Error().Err(err).Str("session", m.cfg.Name).Msg("failed to wipe credentials")
		} else {
			audit.Log(ctx, audit.Event{Type: audit.EventCredentialsWiped, Session: m.cfg.Name})
		}
		m.mu.Lock()
		m.phone = ""
		m.mu.Unlock()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if !sleepCtx(ctx, m.cfg.ReconnectDelay) {
			return
		}
		if err := m.startWithRetry(ctx); err != nil {
			log.Debug().Err(err).Msg("reconnect abandoned")
		}
	}()
}

// dispatch filters evt and normalizes it on the worker pool. Acquiring a
// worker blocks the caller, so a full pool slows event intake.
func (m *SessionManager) dispatch(ctx context.Context, evt *model.InboundEvent, fetcher MediaFetcher) {
	if reason := discardReason(evt); reason != "" {
		if evt != nil {
			log.Debug().Str("messageId", evt.ID).Str("reason", reason).Msg("message discarded")
		}
		return
	}

	if err := m.workers.Acquire(ctx, 1); err != nil {
		log.Warn().Err(err).Str("messageId", evt.ID).Msg("message dropped, shutting down")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.workers.Release(1)

		msgCtx, cancel := context.WithTimeout(ctx, m.cfg.MessageTimeout)
		defer cancel()

		record, ok := m.normalizer.Normalize(msgCtx, evt, fetcher)
		if !ok || record == nil {
			return
		}
		m.sink.Forward(record)
	}()
}

// SendMessage sends a text message to phone. Only digits of phone are used.
func (m *SessionManager) SendMessage(ctx context.Context, phone, text string) (*SendResult, error) {
	m.mu.RLock()
	lc := m.current
	state := m.state
	m.mu.RUnlock()

	if lc == nil || state != model.StateOpen {
		return nil, apperrors.SessionUnavailable()
	}

	digits := util.PhoneDigits(phone)
	if digits == "" {
		return nil, apperrors.ValidationError("phone must contain digits")
	}

	id, err := lc.conn.SendText(ctx, model.UserJID(digits), text)
	if err != nil {
		log.Error().
			Err(err).
			Str("phone", util.MaskPhone(digits)).
			Msg("send failed")
		return nil, apperrors.SendFailed(err)
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventMessageSent,
		Session: m.cfg.Name,
		Phone:   util.MaskPhone(digits),
		Details: map[string]interface{}{"messageId": id},
	})

	return &SendResult{MessageID: id, Phone: digits}, nil
}

func (m *SessionManager) Status() model.SessionStatus {
	m.mu.RLock()
	status := model.SessionStatus{
		State:      m.state,
		Connected:  m.state == model.StateOpen,
		Generation: m.generation,
		Phone:      m.phone,
	}
	m.mu.RUnlock()

	if m.pairing != nil {
		if _, issuedAt, ok := m.pairing.Latest(); ok {
			status.HasPairingCode = true
			status.PairingIssuedAt = &issuedAt
		}
	}
	return status
}

// Shutdown disconnects the current connection and waits for in-flight
// messages and reconnects, or for ctx to end.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	lc := m.current
	m.current = nil
	m.state = model.StateClosed
	m.mu.Unlock()

	if lc != nil && lc.closed.CompareAndSwap(false, true) {
		lc.conn.Disconnect()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SessionManager) isCurrent(lc *liveConn) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current == lc && !lc.closed.Load()
}

func (m *SessionManager) setState(state model.ConnectionState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

func (m *SessionManager) context() context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseCtx
}

func (m *SessionManager) publish(ctx context.Context, data ConnectionData) {
	if m.events == nil {
		return
	}
	event := model.BrokerEvent{Type: model.BrokerEventConnection, Data: data}
	if err := m.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish connection event")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
