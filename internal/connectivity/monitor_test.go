package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/bus"
)

func TestUnknownCountsAsOnline(t *testing.T) {
	m := NewMonitor(bus.New(), zap.NewNop(), "", 0)
	if m.Status() != Unknown {
		t.Errorf("initial status = %q, want UNKNOWN", m.Status())
	}
	if !m.Online() {
		t.Error("Unknown should count as online so first attempts go out")
	}
}

func TestSetPublishesChange(t *testing.T) {
	b := bus.New()
	m := NewMonitor(b, zap.NewNop(), "", 0)

	ch, unsub := b.Subscribe(bus.KindConnectivityChanged, 4)
	defer unsub()

	m.Set(false)
	select {
	case evt := <-ch:
		change := evt.Payload.(Change)
		if change.From != Unknown || change.To != Offline {
			t.Errorf("change = %+v, want Unknown->Offline", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for connectivity event")
	}
	if m.Online() {
		t.Error("Online() = true after Set(false)")
	}

	// Redundant signal must not re-publish.
	m.Set(false)
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %+v for unchanged status", evt)
	default:
	}

	m.Set(true)
	select {
	case evt := <-ch:
		change := evt.Payload.(Change)
		if change.From != Offline || change.To != Online {
			t.Errorf("change = %+v, want Offline->Online", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for recovery event")
	}
}

func TestProbeLoopDetectsRecovery(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewMonitor(bus.New(), zap.NewNop(), server.URL, 50*time.Millisecond)
	m.Start(context.Background())
	defer m.Stop()

	deadline := time.After(2 * time.Second)
	for m.Status() != Offline {
		select {
		case <-deadline:
			t.Fatal("monitor never went offline against unhealthy server")
		case <-time.After(10 * time.Millisecond):
		}
	}

	healthy.Store(true)
	deadline = time.After(2 * time.Second)
	for m.Status() != Online {
		select {
		case <-deadline:
			t.Fatal("monitor never recovered after server became healthy")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
