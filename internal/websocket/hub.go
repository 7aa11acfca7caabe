package websocket

import "github.com/rs/zerolog/log"

// GlobalTopic is the topic of clients watching every book.
const GlobalTopic = "global"

type topicMessage struct {
	topic string
	data  []byte
}

type clientMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All hub state is owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Messages for every client regardless of topic.
	broadcast chan []byte

	// Messages for the clients of one topic and of the global topic.
	publish chan topicMessage

	// Replies for a single client.
	direct chan clientMessage

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// A map of topics (ISBNs) to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:     make(chan []byte, 16),
		publish:       make(chan topicMessage, 16),
		direct:        make(chan clientMessage, 16),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.addSubscription(client, client.Topic)
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				h.send(client, message)
			}
		case msg := <-h.direct:
			if h.clients[msg.client] {
				h.send(msg.client, msg.data)
			}
		case msg := <-h.publish:
			for client := range h.subscriptions[msg.topic] {
				h.send(client, msg.data)
			}
			if msg.topic != GlobalTopic {
				for client := range h.subscriptions[GlobalTopic] {
					h.send(client, msg.data)
				}
			}
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(message []byte) {
	if message == nil {
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// BroadcastTo sends a message to the clients subscribed to a book and to the
// clients watching all books.
func (h *Hub) BroadcastTo(topic string, message []byte) {
	if message == nil {
		return
	}
	select {
	case h.publish <- topicMessage{topic: topic, data: message}:
	case <-h.done:
	}
}

// SendTo sends a message to one client if it is still registered.
func (h *Hub) SendTo(client *Client, message []byte) {
	if message == nil {
		return
	}
	select {
	case h.direct <- clientMessage{client: client, data: message}:
	case <-h.done:
	}
}

// send drops clients whose buffer is full.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		log.Warn().Str("topic", client.Topic).Msg("Dropping slow websocket client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	subs, ok := h.subscriptions[client.Topic]
	if !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.subscriptions, client.Topic)
	}
}
