package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/isdelr/notes-be/internal/auth"
	ws "github.com/isdelr/notes-be/internal/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP connections to the live note feed.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler accepting browser
// connections from allowedOrigins. A "*" entry allows any origin.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Serve handles the WebSocket connection request. The optional userId
// query parameter limits the feed to that user's notes.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	var authUserID string
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		authUserID = claims.UserID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, authUserID, r.URL.Query().Get("userId"))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleIncomingWSMessage)
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Error().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		h.hub.Reply(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case ws.ActionSubscribe:
		payload, _ := msg.Payload.(map[string]interface{})
		userID, _ := payload["userId"].(string)
		if userID == "" {
			h.hub.Reply(client, ws.NewErrorMessage("subscribe requires a userId"))
			return
		}
		h.hub.Subscribe(client, userID)
		h.hub.Reply(client, ws.NewSubscribedMessage(userID))

	case ws.ActionUnsubscribe:
		h.hub.Subscribe(client, "")
		h.hub.Reply(client, ws.NewSubscribedMessage(""))

	case ws.ActionPing:
		h.hub.Reply(client, ws.NewPongMessage())

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.hub.Reply(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}
