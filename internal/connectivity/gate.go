// Package connectivity wraps a network-reachability signal into a boolean
// predicate consumed by the rest of the engine.
//
// The gate owns no retry or backoff logic. Its only contract is "currently
// reachable: yes/no", sampled at the moment of each mutation attempt; no
// component should cache the answer across more than one operation.
package connectivity

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// Gate reports whether the remote backend is currently reachable.
type Gate interface {
	IsConnected(ctx context.Context) bool
}

// Manual is a gate whose state is set explicitly. Used by tests and by
// clients that receive reachability callbacks from the platform.
type Manual struct {
	online atomic.Bool
}

// NewManual returns a Manual gate in the given initial state.
func NewManual(online bool) *Manual {
	g := &Manual{}
	g.online.Store(online)
	return g
}

// SetOnline flips the gate's state.
func (g *Manual) SetOnline(online bool) {
	g.online.Store(online)
}

// IsConnected implements Gate.
func (g *Manual) IsConnected(context.Context) bool {
	return g.online.Load()
}

// DefaultProbeTimeout bounds a single reachability probe. Short on purpose:
// the gate is sampled synchronously on every mutation attempt and must never
// stall a local write.
const DefaultProbeTimeout = 2 * time.Second

// Probe is a gate that samples reachability by issuing a HEAD request to a
// health endpoint. Every call probes fresh; nothing is cached.
type Probe struct {
	// URL is the health endpoint to probe, e.g. "http://api.example.com/healthz".
	URL string

	// Client is the HTTP client to probe with. When nil, a client with
	// DefaultProbeTimeout is used.
	Client *http.Client
}

// NewProbe returns a Probe against the given health URL.
func NewProbe(url string) *Probe {
	return &Probe{URL: url}
}

// IsConnected implements Gate. Any transport error or non-2xx status counts
// as unreachable.
func (p *Probe) IsConnected(ctx context.Context) bool {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultProbeTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
