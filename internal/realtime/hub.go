// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/jobs"
)

// NotificationChannel is the Redis channel a user's job events are published on.
func NotificationChannel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Role   models.Role
	Send   chan []byte
}

// Event is the payload pushed to websocket clients and Redis subscribers.
type Event struct {
	Type string      `json:"type"`
	Job  *models.Job `json:"job"`
}

// Hub tracks connected websocket clients and fans job events out to them.
// Clients are added and removed only by the Run goroutine. Once Run returns,
// done is closed and registration calls return immediately.
type Hub struct {
	RDB    *redis.Client
	Logger *slog.Logger

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub(rdb *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		RDB:        rdb,
		Logger:     logger,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// RegisterClient adds client to the hub. After shutdown the client's Send
// channel is closed straight away so its writer exits.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// UnregisterClient removes client and closes its Send channel. After shutdown
// Run has already closed every channel, so there is nothing left to do.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// JobChanged delivers the event to the job's client, its technician and every
// connected admin. New jobs also go to all technicians so open lists refresh.
// When Redis is configured the event is published per recipient as well.
func (h *Hub) JobChanged(ctx context.Context, event string, job *models.Job) {
	payload, err := json.Marshal(Event{Type: event, Job: job})
	if err != nil {
		h.Logger.Error("marshal job event", slog.String("job_id", job.ID.String()), slog.Any("error", err))
		return
	}

	recipients := []uuid.UUID{job.ClientID}
	if job.TechnicianID != nil {
		recipients = append(recipients, *job.TechnicianID)
	}

	h.deliver(payload, func(c *Client) bool {
		if c.Role == models.RoleAdmin {
			return true
		}
		if event == jobs.EventCreated && c.Role == models.RoleTechnician {
			return true
		}
		for _, id := range recipients {
			if c.UserID == id {
				return true
			}
		}
		return false
	})

	if h.RDB == nil {
		return
	}
	for _, id := range recipients {
		if err := h.RDB.Publish(ctx, NotificationChannel(id), payload).Err(); err != nil {
			h.Logger.Warn("publish job event",
				slog.String("job_id", job.ID.String()),
				slog.String("user_id", id.String()),
				slog.Any("error", err),
			)
		}
	}
}

func (h *Hub) deliver(payload []byte, match func(*Client) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !match(client) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			// slow reader, drop rather than block the request
			h.Logger.Warn("dropping event for slow client", slog.String("client_id", client.ID))
		}
	}
}

// Run owns the client map until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.Logger.Debug("client registered",
				slog.String("client_id", client.ID),
				slog.String("user_id", client.UserID.String()),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
				h.Logger.Debug("client unregistered", slog.String("client_id", client.ID))
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}
