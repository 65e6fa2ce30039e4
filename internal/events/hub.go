package events

import "sync"

const (
	// ChannelChanges carries ChangeEvent payloads.
	ChannelChanges = "changes"
	// ChannelDatastore carries connectivity payloads.
	ChannelDatastore = "datastore"

	EventChange        = "change"
	EventNetworkStatus = "networkStatus"
)

// NetworkStatus is the payload of a networkStatus event.
type NetworkStatus struct {
	Online bool `json:"online"`
}

type Message struct {
	Channel string
	Event   string
	Data    interface{}
}

// Listener is the subscribe side of a Hub.
type Listener interface {
	Listen(channel string) (<-chan Message, func())
}

// Hub is an in-process publish/subscribe bus. Delivery never blocks the
// dispatcher: a listener whose buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	next   int
	subs   map[string]map[int]chan Message
	buffer int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Message), buffer: 16}
}

// Listen subscribes to a channel. The returned func unsubscribes and closes
// the message channel; calling it more than once is safe.
func (h *Hub) Listen(channel string) (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Message, h.buffer)
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[int]chan Message)
	}
	h.subs[channel][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[channel], id)
			close(ch)
		})
	}
}

func (h *Hub) Dispatch(channel, event string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{Channel: channel, Event: event, Data: data}
	for _, ch := range h.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Notify lets the hub stand in as a Notifier when no broker is configured.
func (h *Hub) Notify(event ChangeEvent) error {
	h.Dispatch(ChannelChanges, EventChange, event)
	return nil
}

func (h *Hub) Close() {}
