package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wagateway/gateway-server-go/internal/model"
	redisclient "github.com/wagateway/gateway-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 16
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	Events chan Event
	Done   chan struct{}
}

// Broker fans session events out to SSE clients. With a redis client the
// events travel through the session channel, otherwise they stay in process.
type Broker struct {
	redis   *redisclient.Client
	channel string

	clients map[*Client]bool
	mu      sync.RWMutex

	subscribeOnce sync.Once
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client, sessionName string) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		channel: redisclient.SessionChannel(sessionName),
		clients: make(map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe() *Client {
	client := &Client{
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}

	if b.redis != nil {
		b.subscribeOnce.Do(func() {
			go b.subscribeToRedis()
		})
	}

	b.mu.Lock()
	b.clients[client] = true
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Info().
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client.Done)

		log.Info().
			Int("clientCount", len(b.clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, event model.BrokerEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	sseEvent := Event{Type: string(event.Type), Data: data}

	if b.redis == nil {
		b.broadcast(sseEvent)
		return nil
	}

	payload, err := json.Marshal(sseEvent)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, b.channel, payload).Err()
}

func (b *Broker) subscribeToRedis() {
	pubsub := b.redis.Subscribe(b.ctx, b.channel)
	defer pubsub.Close()

	log.Debug().
		Str("channel", b.channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(event)
		}
	}
}

func (b *Broker) broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("type", event.Type).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for client := range b.clients {
		close(client.Done)
	}
	b.clients = make(map[*Client]bool)
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
