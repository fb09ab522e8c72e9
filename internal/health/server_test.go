package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/strikefeed/strikefeed/internal/model"
	"github.com/strikefeed/strikefeed/internal/store"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func seedStore(t *testing.T) *store.Store {
	t.Helper()

	st := store.New(store.DefaultGracePeriod)
	sym, err := model.FormatSymbol("SPY", "2024-09-13", model.Call, 550)
	if err != nil {
		t.Fatal(err)
	}
	st.CreateEpoch("SPY", "2024-09-13", store.Meta{ATM: 550, RangePoints: 10}, []model.ContractSeed{
		{Symbol: sym, Underlying: "SPY", Expiration: "2024-09-13", Strike: 550, Right: model.Call},
	})
	return st
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	return body
}

func TestHandleHealth_Healthy(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Beat("hydrator")

	s := NewServer(ServerConfig{Port: 0}, tracker, seedStore(t), fakePinger{}, func() map[string]int64 {
		return map[string]int64{"matched": 42}
	}, nil)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeHealth(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	epochs, ok := body["epochs"].([]any)
	if !ok || len(epochs) != 1 {
		t.Fatalf("epochs = %v, want 1 entry", body["epochs"])
	}
	counters, ok := body["counters"].(map[string]any)
	if !ok || counters["matched"] != float64(42) {
		t.Errorf("counters = %v, want matched 42", body["counters"])
	}
	if _, ok := body["heartbeats"].(map[string]any)["hydrator"]; !ok {
		t.Errorf("heartbeats = %v, want hydrator entry", body["heartbeats"])
	}
}

func TestHandleHealth_KVDown(t *testing.T) {
	s := NewServer(ServerConfig{Port: 0}, nil, seedStore(t), fakePinger{err: errors.New("connection refused")}, nil, nil)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if body := decodeHealth(t, rec); body["status"] != "unhealthy" {
		t.Errorf("status = %v, want unhealthy", body["status"])
	}
}

func TestHandleHealth_NoEpochsDegraded(t *testing.T) {
	s := NewServer(ServerConfig{Port: 0}, nil, store.New(store.DefaultGracePeriod), fakePinger{}, nil, nil)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if body := decodeHealth(t, rec); body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestTracker_Ages(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Beat("a")
	tracker.Beat("b")

	ages := tracker.Ages()
	if len(ages) != 2 {
		t.Fatalf("len(Ages()) = %d, want 2", len(ages))
	}
	for component, age := range ages {
		if age < 0 || age > 5 {
			t.Errorf("age[%s] = %v, want recent", component, age)
		}
	}
}
