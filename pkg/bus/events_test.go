package bus

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEventFanout(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	ctx := context.Background()
	eventsA, unsubA := eb.SubscribeEvents(ctx, 1)
	defer unsubA()
	eventsB, unsubB := eb.SubscribeEvents(ctx, 1)
	defer unsubB()

	event := Event{Type: EventDispatchReceived, DispatchID: "1"}
	if ok := eb.PublishEvent(ctx, event); !ok {
		t.Fatal("expected event publish to succeed")
	}

	for name, ch := range map[string]<-chan Event{"A": eventsA, "B": eventsB} {
		select {
		case got := <-ch:
			if got.Type != EventDispatchReceived {
				t.Fatalf("subscriber %s event type = %q, want %q", name, got.Type, EventDispatchReceived)
			}
			if got.At.IsZero() {
				t.Fatalf("subscriber %s expected event timestamp", name)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %s did not receive event", name)
		}
	}
}

func TestDispatchEventPublishes(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	events, unsubscribe := eb.SubscribeEvents(context.Background(), 1)
	defer unsubscribe()

	eb.DispatchEvent(Event{Type: EventDispatchCompleted, MessageType: "text"})

	select {
	case got := <-events:
		if got.MessageType != "text" {
			t.Fatalf("message type = %q, want %q", got.MessageType, "text")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected dispatched event")
	}
}

func TestSlowSubscriberDoesNotBlockPublishEvent(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	ctx := context.Background()
	events, unsubscribe := eb.SubscribeEvents(ctx, 1)
	defer unsubscribe()

	if ok := eb.PublishEvent(ctx, Event{Type: EventDispatchReceived}); !ok {
		t.Fatal("expected first event publish to succeed")
	}

	start := time.Now()
	if ok := eb.PublishEvent(ctx, Event{Type: EventDispatchCompleted}); !ok {
		t.Fatal("expected second event publish to succeed")
	}

	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("publish event blocked on slow subscriber")
	}

	select {
	case <-events:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one event")
	}
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	ctx := context.Background()
	events, unsubscribe := eb.SubscribeEvents(ctx, 1)
	unsubscribe()

	if ok := eb.PublishEvent(ctx, Event{Type: EventDispatchReceived}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event channel close after unsubscribe")
	}
}

func TestCloseStopsPublishing(t *testing.T) {
	eb := NewEventBus()

	events, _ := eb.SubscribeEvents(context.Background(), 1)
	eb.Close()

	if ok := eb.PublishEvent(context.Background(), Event{Type: EventDispatchReceived}); ok {
		t.Fatal("expected publish to fail after close")
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected event channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event subscription did not unblock after close")
	}
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	eb := NewEventBus()
	eb.Close()

	events, unsubscribe := eb.SubscribeEvents(context.Background(), 1)
	unsubscribe()

	if _, ok := <-events; ok {
		t.Fatal("expected closed channel after close")
	}
}

func TestCanceledContextUnsubscribes(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	events, _ := eb.SubscribeEvents(ctx, 1)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected unsubscribe on context cancel")
	}
}
