package bus

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 100

type EventType string

const (
	EventDispatchReceived    EventType = "dispatch_received"
	EventDispatchCompleted   EventType = "dispatch_completed"
	EventDispatchIntercepted EventType = "dispatch_intercepted"
	EventDispatchRejected    EventType = "dispatch_rejected"
	EventDispatchFailed      EventType = "dispatch_failed"
)

// Event describes one step of a dispatch for observers.
type Event struct {
	Type        EventType         `json:"type"`
	At          time.Time         `json:"at"`
	DispatchID  string            `json:"dispatch_id,omitempty"`
	MessageType string            `json:"message_type,omitempty"`
	Sender      string            `json:"sender,omitempty"`
	Kind        string            `json:"kind,omitempty"`
	Payload     map[string]string `json:"payload,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// EventBus fans dispatch events out to subscribers without ever blocking the
// publisher.
type EventBus struct {
	subscribers map[uint64]chan Event
	nextID      uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

// DispatchEvent publishes event in the background context.
func (eb *EventBus) DispatchEvent(event Event) {
	_ = eb.PublishEvent(context.Background(), event)
}

func (eb *EventBus) PublishEvent(ctx context.Context, event Event) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-eb.done:
		return false
	default:
	}

	// Hold the read lock while sending so unsubscribe cannot close a channel
	// mid-send; sends never block.
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Drop instead of blocking the publisher on slow subscribers.
		}
	}

	return true
}

func (eb *EventBus) SubscribeEvents(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	eb.mu.Lock()
	select {
	case <-eb.done:
		eb.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := eb.nextID
	eb.nextID++
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(stop)
			eb.mu.Lock()
			if eventCh, ok := eb.subscribers[id]; ok {
				delete(eb.subscribers, id)
				close(eventCh)
			}
			eb.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-eb.done:
		case <-stop:
			return
		}
		unsubscribe()
	}()

	return ch, unsubscribe
}

func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		close(eb.done)

		eb.mu.Lock()
		for id, ch := range eb.subscribers {
			close(ch)
			delete(eb.subscribers, id)
		}
		eb.mu.Unlock()
	})
}
