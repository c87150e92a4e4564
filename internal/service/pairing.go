package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/wagateway/gateway-server-go/internal/audit"
	apperrors "github.com/wagateway/gateway-server-go/internal/errors"
	"github.com/wagateway/gateway-server-go/internal/model"
	"github.com/wagateway/gateway-server-go/internal/util"
)

type EventPublisher interface {
	Publish(ctx context.Context, event model.BrokerEvent) error
}

// PairingCodeData is the payload of a "qr" broker event.
type PairingCodeData struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issuedAt"`
}

// PairingService holds the most recent pairing code. Each new code
// overwrites the previous one; codes are never cleared.
type PairingService struct {
	mu       sync.RWMutex
	code     string
	issuedAt time.Time

	publisher EventPublisher
	terminal  io.Writer
	qrURL     string
	now       func() time.Time
}

// NewPairingService renders codes to terminal when it is non-nil. qrURL is
// logged as the place to fetch the code as an image.
func NewPairingService(publisher EventPublisher, terminal io.Writer, qrURL string) *PairingService {
	return &PairingService{
		publisher: publisher,
		terminal:  terminal,
		qrURL:     qrURL,
		now:       time.Now,
	}
}

func (s *PairingService) Publish(ctx context.Context, code string) {
	issuedAt := s.now()

	s.mu.Lock()
	s.code = code
	s.issuedAt = issuedAt
	s.mu.Unlock()

	if s.terminal != nil {
		qrterminal.GenerateHalfBlock(code, qrterminal.L, s.terminal)
	}

	log.Info().
		Str("url", s.qrURL).
		Msg("scan the pairing code with WhatsApp > Linked devices")

	audit.Log(ctx, audit.Event{
		Type:    audit.EventPairingCodeIssued,
		Details: map[string]interface{}{"code": util.MaskCode(code)},
	})

	if s.publisher == nil {
		return
	}
	event := model.BrokerEvent{
		Type: model.BrokerEventQR,
		Data: PairingCodeData{Code: code, IssuedAt: issuedAt},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish pairing code event")
	}
}

// Latest returns the current code and when it was issued.
func (s *PairingService) Latest() (string, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.code == "" {
		return "", time.Time{}, false
	}
	return s.code, s.issuedAt, true
}

// PNG renders the current code as a size x size image.
func (s *PairingService) PNG(size int) ([]byte, error) {
	code, _, ok := s.Latest()
	if !ok {
		return nil, apperrors.NotFound("QR code")
	}

	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, apperrors.Internal("Failed to render QR code").WithCause(err)
	}
	return png, nil
}
