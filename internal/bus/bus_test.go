package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("view.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindViewChanged, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindViewChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindViewChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindNotifyError})
	b.Publish(Event{Kind: KindSendFailed})

	select {
	case evt := <-ch:
		if evt.Kind != KindSendFailed {
			t.Errorf("got kind %q, want %s", evt.Kind, KindSendFailed)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// The notify event must not have been delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitStampsTime(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 1)
	defer unsub()

	before := time.Now()
	b.Emit(KindMessageSent, 42)

	evt := <-ch
	if evt.Timestamp.Before(before) {
		t.Errorf("timestamp %v before emit %v", evt.Timestamp, before)
	}
	if evt.Payload != 42 {
		t.Errorf("payload = %v, want 42", evt.Payload)
	}
}

func TestSlowSubscriberDropsAreCounted(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("view.", 1)
	defer unsub()

	for i := 0; i < 3; i++ {
		b.Emit(KindViewChanged, i)
	}
	if got := b.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if evt := <-ch; evt.Payload != 0 {
		t.Errorf("first payload = %v, want 0", evt.Payload)
	}
}

func TestEmitOnNilBus(t *testing.T) {
	var b *Bus
	b.Emit(KindViewChanged, nil)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("view.", 10)
	unsub()

	b.Publish(Event{Kind: KindViewChanged})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("pagination.", 1)
	defer unsub()

	b.Publish(Event{Kind: KindPaginationOlder})
	// Dropped: buffer is full.
	b.Publish(Event{Kind: KindPaginationNewer})

	evt := <-ch
	if evt.Kind != KindPaginationOlder {
		t.Errorf("got %q, want %s", evt.Kind, KindPaginationOlder)
	}
}
