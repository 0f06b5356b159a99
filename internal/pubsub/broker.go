package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Broker is a simple in-memory pub/sub system used to fan out live room
// events (joins, solves, completions) to websocket watchers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte // topic -> list of subscriber channels
}

// RoomEvent is the wire format pushed to room watchers.
type RoomEvent struct {
	Type   string      `json:"type"` // "participant_joined", "solve_submitted", "participant_completed", "room_expired"
	RoomID string      `json:"room_id"`
	Data   interface{} `json:"data,omitempty"`
}

var (
	once   sync.Once
	broker *Broker
)

// GetBroker returns the singleton instance of the Broker.
func GetBroker() *Broker {
	once.Do(func() {
		broker = &Broker{
			subscribers: make(map[string][]chan []byte),
		}
	})
	return broker
}

// Subscribe subscribes to a topic and returns the message channel together
// with an unsubscribe function.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()
	ch := make(chan []byte, 128) // buffered so a slow reader has headroom
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.subscribers[topic]
		for i, sub := range subscribers {
			if sub == ch {
				b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
				close(ch)
				break
			}
		}
		zap.S().Debugf("unsubscribed from topic %s", topic)
	}

	zap.S().Debugf("new subscription to topic %s", topic)
	return ch, unsubscribe
}

// Publish sends a message to all subscribers of a topic (non-blocking).
func (b *Broker) Publish(topic string, msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// A full subscriber channel means a stalled client; drop the
			// message for them rather than block the publisher.
		}
	}
}

// CloseTopic closes all subscriber channels for a topic. Called when a room
// expires or is deleted.
func (b *Broker) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[topic]; ok {
		for _, ch := range subscribers {
			close(ch)
		}
		delete(b.subscribers, topic)
		zap.S().Infof("closed pubsub topic %s", topic)
	}
}

// PublishRoomEvent marshals and publishes an event on the room's topic.
func (b *Broker) PublishRoomEvent(event RoomEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		zap.S().Errorf("failed to marshal room event: %v", err)
		return
	}
	b.Publish(event.RoomID, payload)
}
