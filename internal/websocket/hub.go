package websocket

import (
	"github.com/isdelr/notes-be/internal/models"
	"github.com/rs/zerolog/log"
)

type subscription struct {
	client *Client
	userID string
}

type reply struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and fans note events out to them.
// All client and subscription state is owned by the Run goroutine.
type Hub struct {
	// Registered clients mapped to the user whose notes they follow.
	// An empty user id follows every note.
	clients map[*Client]string

	events     chan models.NoteEvent
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	replies    chan reply
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]string),
		events:     make(chan models.NoteEvent, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		replies:    make(chan reply),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = client.filter
			log.Info().Int("total_clients", len(h.clients)).Str("user_id", client.UserID).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; ok {
				h.clients[sub.client] = sub.userID
			}
		case r := <-h.replies:
			if _, ok := h.clients[r.client]; ok {
				h.deliver(r.client, r.message)
			}
		case event := <-h.events:
			h.broadcast(event)
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Publish queues a note event for delivery. Events published after Stop, or
// while the queue is full, are dropped.
func (h *Hub) Publish(event models.NoteEvent) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.events <- event:
	default:
		log.Warn().Str("type", event.Type).Str("note_id", event.NoteID).Msg("Event queue full, dropping note event")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe limits client to events for notes owned by userID. An empty
// userID restores the unfiltered feed.
func (h *Hub) Subscribe(client *Client, userID string) {
	select {
	case h.subscribe <- subscription{client: client, userID: userID}:
	case <-h.done:
	}
}

// Reply sends message to a single client. Use it instead of writing to
// client.Send directly, since the hub may close that channel at any time.
func (h *Hub) Reply(client *Client, message []byte) {
	select {
	case h.replies <- reply{client: client, message: message}:
	case <-h.done:
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Hub) broadcast(event models.NoteEvent) {
	message, err := NewEventMessage(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to encode note event")
		return
	}
	for client, userID := range h.clients {
		if userID != "" && userID != event.UserID {
			continue
		}
		h.deliver(client, message)
	}
}

func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		// Slow consumer.
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
}
