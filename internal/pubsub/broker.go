package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Broker is a simple in-memory pub/sub system used to stream sync progress
// to websocket clients. Messages are cached per topic so a client connecting
// mid-sync still sees the earlier steps.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte // topic -> list of subscriber channels
	cache       map[string][][]byte      // topic -> list of cached messages
}

// Event is the wire shape of one progress message.
type Event struct {
	Stream string `json:"stream"`
	Data   string `json:"data"`
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
			cache:       make(map[string][][]byte),
		}
	})
	return broker
}

// Subscribe subscribes to a topic. It first sends all cached messages to the
// new subscriber, then adds the subscriber to receive live messages.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()

	ch := make(chan []byte, 128)

	// Replay history into the buffered channel before registering, still
	// under the lock: nothing can close ch yet, so the sends cannot race an
	// unsubscribe or CloseTopic. Overflow beyond the buffer is dropped, the
	// same policy Publish applies to slow subscribers.
	history := b.cache[topic]
	for _, msg := range history {
		select {
		case ch <- msg:
		default:
		}
	}

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

	zap.S().Debugf("new subscription to topic %s, sent %d cached messages", topic, len(history))
	return ch, unsubscribe
}

// Publish publishes a message to all subscribers of a topic and caches it.
func (b *Broker) Publish(topic string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache[topic] = append(b.cache[topic], msg)

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// A full subscriber channel drops the message rather than
			// blocking the publisher.
		}
	}
}

// CloseTopic closes all subscriber channels and clears the cache for a topic.
// Called when a sync finishes.
func (b *Broker) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[topic]; ok {
		for _, ch := range subscribers {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
	delete(b.cache, topic)
	zap.S().Debugf("closed pubsub topic %s", topic)
}

// FormatMessage renders one progress event for the wire.
func FormatMessage(stream string, data string) []byte {
	msg := Event{Stream: stream, Data: data}
	bytes, err := json.Marshal(msg)
	if err != nil {
		return []byte(`{"stream": "error", "data": "json format error"}`)
	}
	return bytes
}
