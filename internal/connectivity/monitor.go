// Package connectivity tracks whether the remote API is reachable. The
// state feeds the outbox drain loop, which must not burn attempts while the
// client is known offline.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/bus"
)

// Status is the current connectivity assessment.
type Status string

const (
	// Unknown is the state before any signal or probe; treated as online
	// so the first operation still attempts the network.
	Unknown Status = "UNKNOWN"
	Online  Status = "ONLINE"
	Offline Status = "OFFLINE"
)

// Change is the payload of connectivity.changed events.
type Change struct {
	From Status
	To   Status
}

// Monitor resolves connectivity from two inputs: external signals via Set
// (the embedding app usually knows, e.g. a platform network callback) and an
// optional periodic probe against the API health endpoint.
type Monitor struct {
	mu       sync.RWMutex
	status   Status
	bus      *bus.Bus
	log      *zap.Logger
	probeURL string
	interval time.Duration
	hc       *http.Client
	cancel   context.CancelFunc
}

// NewMonitor creates a monitor. probeURL may be empty and interval zero to
// disable probing and rely on Set alone.
func NewMonitor(b *bus.Bus, log *zap.Logger, probeURL string, interval time.Duration) *Monitor {
	return &Monitor{
		status:   Unknown,
		bus:      b,
		log:      log,
		probeURL: probeURL,
		interval: interval,
		hc:       &http.Client{Timeout: 5 * time.Second},
	}
}

// Status returns the current assessment.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Online reports whether network attempts are worthwhile. Unknown counts as
// online: better to try and fail than to sit on queued writes.
func (m *Monitor) Online() bool {
	return m.Status() != Offline
}

// Set records an external connectivity signal. Publishes a
// connectivity.changed event when the assessment flips.
func (m *Monitor) Set(online bool) {
	to := Offline
	if online {
		to = Online
	}

	m.mu.Lock()
	from := m.status
	if from == to {
		m.mu.Unlock()
		return
	}
	m.status = to
	m.mu.Unlock()

	m.log.Info("connectivity changed", zap.String("from", string(from)), zap.String("to", string(to)))
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindConnectivityChanged,
			Timestamp: time.Now(),
			Payload:   Change{From: from, To: to},
		})
	}
}

// Start begins the probe loop when probing is configured.
func (m *Monitor) Start(ctx context.Context) {
	if m.probeURL == "" || m.interval <= 0 {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	go m.loop(ctx)
}

// Stop stops the probe loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Set(m.probe(ctx))
	for {
		select {
		case <-ticker.C:
			m.Set(m.probe(ctx))
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.hc.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < 500
}
