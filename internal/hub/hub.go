package hub

import (
	"encoding/json"
	"expvar"
	"log"
	"sync"
)

var droppedMessages = expvar.NewInt("hub_dropped_messages_total")

// Envelope is the wire message carried on the realtime channel. Topic and
// Recipient address it independently.
type Envelope struct {
	Message   string `json:"message"`
	Topic     string `json:"type"`
	Recipient string `json:"recipient"`
}

type key struct {
	topic     string
	recipient string
}

type Client struct {
	ID   string
	Send chan []byte

	mu   sync.Mutex
	keys map[key]struct{}
}

func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	return &Client{ID: id, Send: make(chan []byte, buffer), keys: make(map[key]struct{})}
}

// Hub routes envelopes to every client subscribed to the envelope's
// {topic, recipient} pair. It is constructed explicitly and injected; there
// is no process-wide instance, and a key holds a set of clients, so two
// consumers of the same pair never steal each other's deliveries.
type Hub struct {
	mu      sync.RWMutex
	clients map[key]map[string]*Client
}

func New() *Hub {
	return &Hub{clients: make(map[key]map[string]*Client)}
}

func (h *Hub) Subscribe(client *Client, topic, recipient string) {
	k := key{topic: topic, recipient: recipient}

	h.mu.Lock()
	set, ok := h.clients[k]
	if !ok {
		set = make(map[string]*Client)
		h.clients[k] = set
	}
	set[client.ID] = client
	h.mu.Unlock()

	client.mu.Lock()
	client.keys[k] = struct{}{}
	client.mu.Unlock()
}

func (h *Hub) Unsubscribe(client *Client, topic, recipient string) {
	k := key{topic: topic, recipient: recipient}

	h.mu.Lock()
	if set, ok := h.clients[k]; ok {
		delete(set, client.ID)
		if len(set) == 0 {
			delete(h.clients, k)
		}
	}
	h.mu.Unlock()

	client.mu.Lock()
	delete(client.keys, k)
	client.mu.Unlock()
}

// Detach removes the client from every key it subscribed to and closes its
// send channel. Call exactly once, when the connection goes away.
func (h *Hub) Detach(client *Client) {
	client.mu.Lock()
	keys := make([]key, 0, len(client.keys))
	for k := range client.keys {
		keys = append(keys, k)
	}
	client.keys = make(map[key]struct{})
	client.mu.Unlock()

	h.mu.Lock()
	for _, k := range keys {
		if set, ok := h.clients[k]; ok {
			delete(set, client.ID)
			if len(set) == 0 {
				delete(h.clients, k)
			}
		}
	}
	h.mu.Unlock()

	close(client.Send)
}

// Publish delivers the envelope to every subscriber of its address, best
// effort. A subscriber whose buffer is full loses the message.
func (h *Hub) Publish(env Envelope) int {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("hub marshal error: %v", err)
		return 0
	}
	k := key{topic: env.Topic, recipient: env.Recipient}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, client := range h.clients[k] {
		select {
		case client.Send <- payload:
			delivered++
		default:
			droppedMessages.Add(1)
			log.Printf("hub drop message for client %s", client.ID)
		}
	}
	return delivered
}

type SubscribeMessage struct {
	Action    string `json:"action"`
	Topic     string `json:"type"`
	Recipient string `json:"recipient"`
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
