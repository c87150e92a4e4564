package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wagateway/gateway-server-go/internal/model"
	"github.com/wagateway/gateway-server-go/internal/util"
)

const SignatureHeader = "X-Gateway-Signature"

// WebhookForwarder posts canonical records to the configured endpoint.
// Delivery is best effort: one attempt, failures only logged.
type WebhookForwarder struct {
	url     string
	secret  string
	timeout time.Duration
	client  *http.Client

	wg sync.WaitGroup
}

func NewWebhookForwarder(url, secret string, timeout time.Duration) *WebhookForwarder {
	return &WebhookForwarder{
		url:     url,
		secret:  secret,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Forward posts record in the background and returns immediately.
func (f *WebhookForwarder) Forward(record *model.Record) {
	if record == nil {
		return
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		if err := f.Post(ctx, record); err != nil {
			log.Warn().
				Err(err).
				Str("messageId", record.MessageID).
				Msg("webhook delivery dropped")
		}
	}()
}

// Wait blocks until every in-flight Forward has finished.
func (f *WebhookForwarder) Wait() {
	f.wg.Wait()
}

func (f *WebhookForwarder) Post(ctx context.Context, record *model.Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+util.HmacSHA256(f.secret, body))
	}

	resp, err := f.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("url", f.url).
			Dur("elapsed", elapsed).
			Msg("webhook error")
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("url", f.url).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("webhook rejected record")
		return fmt.Errorf("webhook failed with status %d", resp.StatusCode)
	}

	log.Debug().
		Str("url", f.url).
		Str("messageId", record.MessageID).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("webhook delivered")

	return nil
}
