package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/isdelr/book-review-be/internal/services"
	ws "github.com/isdelr/book-review-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP connections to live review feeds.
type WebSocketHandler struct {
	hub      *ws.Hub
	books    services.BookServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Upgrades are accepted
// from the given origins only; an empty list allows same-origin requests.
func NewWebSocketHandler(hub *ws.Hub, books services.BookServiceProvider, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub, books: books}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin] || sameOrigin(r)
		}
	}
	return h
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Serve handles the WebSocket connection request for /ws and /ws/books/{isbn}.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	topic := urlParam(r, "isbn")
	if topic != "" {
		if _, err := h.books.GetBookByISBN(topic); err != nil {
			writeMessage(w, http.StatusNotFound, "Book not found")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, topic)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleIncomingWSMessage)
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		h.reply(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "get_stats":
		h.reply(client, ws.Encode(ws.ActionCatalogStats, h.books.Stats()))

	case "get_reviews":
		if client.Topic == ws.GlobalTopic {
			h.reply(client, ws.NewErrorMessage("get_reviews requires a book subscription"))
			return
		}
		reviews, err := h.books.GetReviews(client.Topic)
		if errors.Is(err, services.ErrBookNotFound) {
			h.reply(client, ws.NewErrorMessage("Book not found"))
			return
		}
		h.reply(client, ws.Encode("reviews", reviews))

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.reply(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}

// reply queues a message for one client through the hub.
func (h *WebSocketHandler) reply(client *ws.Client, message []byte) {
	h.hub.SendTo(client, message)
}
