package spot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strikefeed/strikefeed/internal/chainapi"
)

func spotServer(t *testing.T, calls *atomic.Int64, fail *atomic.Bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(chainapi.SpotResponse{
			Ticker: "SPY",
			Price:  550.25,
			IV30:   0.18,
		})
	}))
}

func TestAPIProvider_CachesWithinMaxAge(t *testing.T) {
	var calls atomic.Int64
	var fail atomic.Bool
	srv := spotServer(t, &calls, &fail)
	defer srv.Close()

	client := chainapi.NewClient(srv.URL, "test-key", chainapi.WithRetries(0, time.Millisecond))
	p := NewAPIProvider(client, time.Minute)

	for i := 0; i < 3; i++ {
		sc, err := p.Spot(context.Background(), "SPY")
		if err != nil {
			t.Fatalf("Spot() error = %v", err)
		}
		if sc.Price != 550.25 {
			t.Errorf("Price = %v, want 550.25", sc.Price)
		}
		if sc.Vol != 0.18 {
			t.Errorf("Vol = %v, want 0.18", sc.Vol)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestAPIProvider_ServesStaleOnFetchFailure(t *testing.T) {
	var calls atomic.Int64
	var fail atomic.Bool
	srv := spotServer(t, &calls, &fail)
	defer srv.Close()

	client := chainapi.NewClient(srv.URL, "test-key", chainapi.WithRetries(0, time.Millisecond))
	p := NewAPIProvider(client, time.Nanosecond) // every call refetches

	if _, err := p.Spot(context.Background(), "SPY"); err != nil {
		t.Fatalf("initial Spot() error = %v", err)
	}

	fail.Store(true)
	sc, err := p.Spot(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("Spot() after upstream failure error = %v", err)
	}
	if sc.Price != 550.25 {
		t.Errorf("stale Price = %v, want 550.25", sc.Price)
	}
}

func TestAPIProvider_ErrorsWithoutCache(t *testing.T) {
	var calls atomic.Int64
	fail := atomic.Bool{}
	fail.Store(true)
	srv := spotServer(t, &calls, &fail)
	defer srv.Close()

	client := chainapi.NewClient(srv.URL, "test-key", chainapi.WithRetries(0, time.Millisecond))
	p := NewAPIProvider(client, time.Minute)

	if _, err := p.Spot(context.Background(), "SPY"); err == nil {
		t.Error("Spot() with no cache and failing upstream returned nil error")
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic(map[string]Context{
		"SPY": {Price: 550, Vol: 0.2},
	})

	sc, err := s.Spot(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("Spot(SPY) error = %v", err)
	}
	if sc.Price != 550 {
		t.Errorf("Price = %v, want 550", sc.Price)
	}

	if _, err := s.Spot(context.Background(), "QQQ"); err == nil {
		t.Error("Spot(QQQ) returned nil error for unknown underlying")
	}

	s.Set("QQQ", Context{Price: 480, Vol: 0.22})
	sc, err = s.Spot(context.Background(), "QQQ")
	if err != nil {
		t.Fatalf("Spot(QQQ) after Set error = %v", err)
	}
	if sc.Price != 480 {
		t.Errorf("Price = %v, want 480", sc.Price)
	}
}
