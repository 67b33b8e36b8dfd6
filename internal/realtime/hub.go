package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"curequeue-server/internal/metrics"

	"github.com/rs/zerolog"
)

const (
	EventBooked             = "appointment.booked"
	EventCompleted          = "appointment.completed"
	EventCancelled          = "appointment.cancelled"
	EventWaitingTimeUpdated = "appointment.waiting_time_updated"
)

// QueueEvent is a change to one doctor's daily queue. It carries no patient
// identity so it can be shown on public display boards.
type QueueEvent struct {
	Type          string    `json:"type"`
	DoctorID      string    `json:"doctorId"`
	Date          string    `json:"date"`
	AppointmentID string    `json:"appointmentId"`
	Token         int       `json:"token"`
	Status        string    `json:"status"`
	WaitingTime   int       `json:"waitingTime"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Subscription selects the queue a client watches.
type Subscription struct {
	DoctorID string
	Date     string
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func New(logger zerolog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		metrics: m,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.metrics.SetQueueClients(len(h.clients))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
	h.metrics.SetQueueClients(len(h.clients))
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish fans ev out to every client watching its queue. A client whose
// buffer is full misses the event.
func (h *Hub) Publish(ev QueueEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("type", ev.Type).Msg("encode queue event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client.Subscription, ev) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn().Str("client_id", client.ID).Str("type", ev.Type).Msg("drop queue event for slow client")
		}
	}
}

func match(sub Subscription, ev QueueEvent) bool {
	if sub.DoctorID != ev.DoctorID {
		return false
	}
	return sub.Date == "" || sub.Date == ev.Date
}
