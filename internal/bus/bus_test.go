package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		var received atomic.Bool
		var receivedEv *domain.Event

		var wg sync.WaitGroup
		wg.Add(1)

		_, err := bus.Subscribe(ctx, "test.topic", func(ctx context.Context, ev *domain.Event) error {
			receivedEv = ev
			received.Store(true)
			wg.Done()
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		// Allow subscription to be active
		time.Sleep(10 * time.Millisecond)

		if err := bus.Publish(ctx, "test.topic", []byte("hello")); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}

		if !received.Load() {
			t.Error("event not received")
		}
		if string(receivedEv.Payload) != "hello" {
			t.Errorf("expected payload 'hello', got '%s'", string(receivedEv.Payload))
		}
		if receivedEv.Topic != "test.topic" {
			t.Errorf("expected topic 'test.topic', got '%s'", receivedEv.Topic)
		}
		if receivedEv.ID == "" {
			t.Error("event ID not assigned")
		}
	})

	t.Run("TopicIsolation", func(t *testing.T) {
		var receivedA atomic.Int32
		var receivedB atomic.Int32

		bus.Subscribe(ctx, "isolation.a", func(ctx context.Context, ev *domain.Event) error {
			receivedA.Add(1)
			return nil
		})
		bus.Subscribe(ctx, "isolation.b", func(ctx context.Context, ev *domain.Event) error {
			receivedB.Add(1)
			return nil
		})

		time.Sleep(10 * time.Millisecond)

		bus.Publish(ctx, "isolation.a", []byte("msg"))
		time.Sleep(50 * time.Millisecond)

		if receivedA.Load() != 1 {
			t.Errorf("topic a should receive 1 event, got %d", receivedA.Load())
		}
		if receivedB.Load() != 0 {
			t.Errorf("topic b should receive 0 events, got %d", receivedB.Load())
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32

		sub, _ := bus.Subscribe(ctx, "unsub.topic", func(ctx context.Context, ev *domain.Event) error {
			count.Add(1)
			return nil
		})

		time.Sleep(10 * time.Millisecond)

		bus.Publish(ctx, "unsub.topic", []byte("msg1"))
		time.Sleep(50 * time.Millisecond)

		if count.Load() != 1 {
			t.Errorf("expected 1 event before unsubscribe, got %d", count.Load())
		}

		sub.Unsubscribe()
		time.Sleep(10 * time.Millisecond)

		bus.Publish(ctx, "unsub.topic", []byte("msg2"))
		time.Sleep(50 * time.Millisecond)

		if count.Load() != 1 {
			t.Errorf("expected 1 event after unsubscribe, got %d", count.Load())
		}
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		var count1, count2 atomic.Int32

		bus.Subscribe(ctx, "multi.topic", func(ctx context.Context, ev *domain.Event) error {
			count1.Add(1)
			return nil
		})
		bus.Subscribe(ctx, "multi.topic", func(ctx context.Context, ev *domain.Event) error {
			count2.Add(1)
			return nil
		})

		time.Sleep(10 * time.Millisecond)

		bus.Publish(ctx, "multi.topic", []byte("broadcast"))
		time.Sleep(50 * time.Millisecond)

		if count1.Load() != 1 || count2.Load() != 1 {
			t.Errorf("expected both subscribers to receive, got %d and %d", count1.Load(), count2.Load())
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := bus.Ping(ctx); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, _ := bus.Subscribe(ctx, "my.topic", func(ctx context.Context, ev *domain.Event) error {
			return nil
		})

		if sub.Topic() != "my.topic" {
			t.Errorf("expected topic 'my.topic', got '%s'", sub.Topic())
		}
	})
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)

	ctx := context.Background()

	bus.Subscribe(ctx, "close.topic", func(ctx context.Context, ev *domain.Event) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	if err := bus.Publish(ctx, "close.topic", []byte("data")); err == nil {
		t.Error("expected error after close")
	}
	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}
	if _, err := bus.Subscribe(ctx, "close.topic", nil); err == nil {
		t.Error("expected subscribe error after close")
	}
}

func TestChannelBusCloseDuringPublish(t *testing.T) {
	bus := NewChannelBus(1)

	ctx := context.Background()

	bus.Subscribe(ctx, "race.topic", func(ctx context.Context, ev *domain.Event) error {
		time.Sleep(time.Millisecond)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if err := bus.Publish(ctx, "race.topic", []byte("msg")); err != nil {
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)

	// Closing while publishers are mid-send must not panic.
	if err := bus.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	wg.Wait()
}

func TestChannelBusCloseDrainsBufferedEvents(t *testing.T) {
	bus := NewChannelBus(100)

	ctx := context.Background()

	var received atomic.Int32
	bus.Subscribe(ctx, "drain.topic", func(ctx context.Context, ev *domain.Event) error {
		received.Add(1)
		return nil
	})

	const eventCount = 50
	for i := 0; i < eventCount; i++ {
		bus.Publish(ctx, "drain.topic", []byte("msg"))
	}

	// Close returns only after the handler worked through its buffer.
	bus.Close()

	if received.Load() != eventCount {
		t.Errorf("received %d/%d events after close", received.Load(), eventCount)
	}
}

func TestNewBus(t *testing.T) {
	b, err := New(domain.EventBusConfig{BufferSize: 50})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer b.Close()

	if _, ok := b.(*ChannelBus); !ok {
		t.Error("expected ChannelBus")
	}
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(1000)
	defer bus.Close()

	ctx := context.Background()

	var received atomic.Int32
	const eventCount = 100

	var wg sync.WaitGroup
	wg.Add(eventCount)

	bus.Subscribe(ctx, "load.topic", func(ctx context.Context, ev *domain.Event) error {
		received.Add(1)
		wg.Done()
		return nil
	})

	time.Sleep(10 * time.Millisecond)

	for i := 0; i < eventCount; i++ {
		bus.Publish(ctx, "load.topic", []byte("msg"))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Load() != eventCount {
			t.Errorf("expected %d events, got %d", eventCount, received.Load())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout: received %d/%d events", received.Load(), eventCount)
	}
}
