package websocket

import (
	"encoding/json"

	"github.com/isdelr/notes-be/internal/models"
)

// Actions understood from and sent to clients.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPing        = "ping"
	ActionPong        = "pong"
	ActionError       = "error"
	ActionSubscribed  = "subscribed"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewEventMessage wraps a note event; the action is the event type.
func NewEventMessage(event models.NoteEvent) ([]byte, error) {
	return json.Marshal(Message{Action: event.Type, Payload: event})
}

// NewErrorMessage builds an error reply.
func NewErrorMessage(msg string) []byte {
	return mustMarshal(Message{Action: ActionError, Payload: map[string]string{"error": msg}})
}

// NewSubscribedMessage confirms the active user filter.
func NewSubscribedMessage(userID string) []byte {
	return mustMarshal(Message{Action: ActionSubscribed, Payload: map[string]string{"userId": userID}})
}

// NewPongMessage answers an application-level ping.
func NewPongMessage() []byte {
	return mustMarshal(Message{Action: ActionPong})
}

func mustMarshal(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return b
}
