package pricefeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/pkg/dates"
	"github.com/goldsave/goldsave-api/internal/pkg/metrics"
)

const (
	// Channel carries price events between API instances
	Channel = "goldprice:updates"

	EventPriceUpdated = "price_updated"
)

// Event is pushed to every connected client
type Event struct {
	Type         string          `json:"type"`
	Date         string          `json:"date"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	PublishedAt  time.Time       `json:"published_at"`
}

// Client is one websocket subscriber
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans price events out to websocket clients. With Redis every instance
// receives the event through pub/sub and broadcasts to its own clients.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[*Client]bool),
		redis:      redisClient,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, Channel)
	}
	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			metrics.PriceFeedClients.Inc()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
				metrics.PriceFeedClients.Dec()
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) runSubscriber() {
	ch := h.pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcastLocal([]byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.Send <- data:
		default:
			log.Warn().Msg("Price feed send buffer full, dropping event")
		}
	}
}

// PublishPrice announces a new price for date to all instances.
func (h *Hub) PublishPrice(ctx context.Context, date time.Time, pricePerGram decimal.Decimal) error {
	data, err := json.Marshal(Event{
		Type:         EventPriceUpdated,
		Date:         dates.Format(date),
		PricePerGram: pricePerGram,
		PublishedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if h.redis == nil {
		h.broadcastLocal(data)
		return nil
	}
	if err := h.redis.Publish(ctx, Channel, data).Err(); err != nil {
		log.Error().Err(err).Str("channel", Channel).Msg("Redis publish failed, broadcasting locally")
		h.broadcastLocal(data)
		return err
	}
	return nil
}

// Register hands the client to the hub. It reports false once the hub has
// shut down; the caller owns the connection then.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// ClientCount returns number of local connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
