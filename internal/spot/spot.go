// Package spot supplies underlying price and volatility context for strike
// window sizing and exposure models. Providers are pluggable: REST-backed in
// production, static for tests and replay runs.
package spot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/strikefeed/strikefeed/internal/chainapi"
)

// Context is the pricing context for one underlying at a point in time.
type Context struct {
	Price     float64   // Spot price in dollars
	Vol       float64   // Annualized implied vol (e.g. 0.18)
	UpdatedAt time.Time // When the provider last refreshed
}

// Provider resolves pricing context per underlying.
type Provider interface {
	Spot(ctx context.Context, underlying string) (Context, error)
}

// -----------------------------------------------------------------------------
// REST-backed
// -----------------------------------------------------------------------------

// APIProvider fetches spot context from the reference API, caching each
// underlying for a short window to keep window computation off the rate
// limiter's critical path.
type APIProvider struct {
	client *chainapi.Client
	maxAge time.Duration

	mu    sync.Mutex
	cache map[string]Context
}

// NewAPIProvider creates a REST-backed provider. maxAge <= 0 selects 15s.
func NewAPIProvider(client *chainapi.Client, maxAge time.Duration) *APIProvider {
	if maxAge <= 0 {
		maxAge = 15 * time.Second
	}
	return &APIProvider{
		client: client,
		maxAge: maxAge,
		cache:  make(map[string]Context),
	}
}

func (p *APIProvider) Spot(ctx context.Context, underlying string) (Context, error) {
	p.mu.Lock()
	cached, ok := p.cache[underlying]
	p.mu.Unlock()
	if ok && time.Since(cached.UpdatedAt) < p.maxAge {
		return cached, nil
	}

	resp, err := p.client.GetSpot(ctx, underlying)
	if err != nil {
		if ok {
			// Serve the stale entry rather than stalling window math.
			return cached, nil
		}
		return Context{}, fmt.Errorf("fetch spot %s: %w", underlying, err)
	}

	sc := Context{
		Price:     resp.Price,
		Vol:       resp.IV30,
		UpdatedAt: time.Now(),
	}
	p.mu.Lock()
	p.cache[underlying] = sc
	p.mu.Unlock()
	return sc, nil
}

// -----------------------------------------------------------------------------
// Static
// -----------------------------------------------------------------------------

// Static serves fixed per-underlying contexts. Used by tests and replay.
type Static struct {
	mu       sync.Mutex
	contexts map[string]Context
}

// NewStatic creates a static provider from initial contexts.
func NewStatic(contexts map[string]Context) *Static {
	cp := make(map[string]Context, len(contexts))
	for k, v := range contexts {
		cp[k] = v
	}
	return &Static{contexts: cp}
}

func (s *Static) Spot(ctx context.Context, underlying string) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.contexts[underlying]
	if !ok {
		return Context{}, fmt.Errorf("no spot context for %s", underlying)
	}
	return sc, nil
}

// Set replaces the context for one underlying.
func (s *Static) Set(underlying string, sc Context) {
	s.mu.Lock()
	s.contexts[underlying] = sc
	s.mu.Unlock()
}
