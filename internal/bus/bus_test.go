package bus

import (
	"testing"
	"time"
)

func TestPublishMatchesPrefix(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("outbox.", 4)
	defer unsub()

	b.Publish(Event{Kind: KindOutboxQueued, Timestamp: time.Now()})
	b.Publish(Event{Kind: KindConnectivityChanged, Timestamp: time.Now()})

	select {
	case evt := <-ch:
		if evt.Kind != KindOutboxQueued {
			t.Errorf("kind = %q, want %q", evt.Kind, KindOutboxQueued)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for outbox event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event %q for outbox. subscriber", evt.Kind)
	default:
	}
}

func TestEmptyPrefixReceivesEverything(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 8)
	defer unsub()

	kinds := []string{KindMirrorUpdated, KindOutboxSynced, KindCacheSwept}
	for _, k := range kinds {
		b.Publish(Event{Kind: k, Timestamp: time.Now()})
	}

	for _, want := range kinds {
		select {
		case evt := <-ch:
			if evt.Kind != want {
				t.Errorf("kind = %q, want %q", evt.Kind, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %q", want)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("outbox.", 1)
	unsub()

	b.Publish(Event{Kind: KindOutboxQueued, Timestamp: time.Now()})

	select {
	case evt := <-ch:
		t.Errorf("received %q after unsubscribe", evt.Kind)
	default:
	}
}

func TestFullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe("outbox.", 1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Kind: KindOutboxSynced, Timestamp: time.Now()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if b.Dropped() == 0 {
		t.Error("expected dropped events to be counted")
	}
}

func TestDroppedSurvivesUnsubscribe(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe(KindOutboxQueued, 1)

	b.Publish(Event{Kind: KindOutboxQueued, Timestamp: time.Now()})
	b.Publish(Event{Kind: KindOutboxQueued, Timestamp: time.Now()})

	if got := b.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d before unsubscribe, want 1", got)
	}

	unsub()
	if got := b.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d after unsubscribe, want 1 (lifetime total)", got)
	}

	// A second unsubscribe call must not double-count.
	unsub()
	if got := b.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d after repeated unsubscribe, want 1", got)
	}
}
