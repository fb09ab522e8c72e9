package chain

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/strikefeed/strikefeed/internal/chainapi"
	"github.com/strikefeed/strikefeed/internal/model"
)

func writeChainFixture(t *testing.T, dir, underlying, expiration string, strikes ...float64) {
	t.Helper()

	resp := chainapi.ChainResponse{}
	for _, strike := range strikes {
		for _, ct := range []string{"call", "put"} {
			right := model.Call
			if ct == "put" {
				right = model.Put
			}
			sym, err := model.FormatSymbol(underlying, expiration, right, strike)
			if err != nil {
				t.Fatalf("FormatSymbol() error = %v", err)
			}
			resp.Contracts = append(resp.Contracts, chainapi.APIContract{
				Details: chainapi.APIDetails{
					Ticker:         "O:" + sym,
					StrikePrice:    strike,
					ContractType:   ct,
					ExpirationDate: expiration,
				},
				LastQuote: chainapi.APIQuote{Bid: 1.0, Ask: 1.1},
			})
		}
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, underlying+"_"+expiration+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFixtureSource_Expirations(t *testing.T) {
	dir := t.TempDir()
	writeChainFixture(t, dir, "SPY", "2024-09-16", 550)
	writeChainFixture(t, dir, "SPY", "2024-09-13", 550)
	writeChainFixture(t, dir, "QQQ", "2024-09-13", 480)

	src := NewFixtureSource(dir)
	exps, err := src.Expirations(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("Expirations() error = %v", err)
	}
	if len(exps) != 2 || exps[0] != "2024-09-13" || exps[1] != "2024-09-16" {
		t.Errorf("Expirations() = %v, want [2024-09-13 2024-09-16]", exps)
	}
}

func TestFixtureSource_ExpirationsMissing(t *testing.T) {
	src := NewFixtureSource(t.TempDir())
	if _, err := src.Expirations(context.Background(), "SPY"); err == nil {
		t.Error("Expirations() with no fixtures should fail")
	}
}

func TestFixtureSource_ChainAppliesWindow(t *testing.T) {
	dir := t.TempDir()
	writeChainFixture(t, dir, "SPY", "2024-09-13", 540, 550, 560, 570)

	src := NewFixtureSource(dir)
	seeds, err := src.Chain(context.Background(), "SPY", "2024-09-13", Window{Low: 545, High: 565})
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}

	// 550 and 560 survive, a call and a put each.
	if len(seeds) != 4 {
		t.Fatalf("len(seeds) = %d, want 4", len(seeds))
	}
	for _, seed := range seeds {
		if seed.Strike < 545 || seed.Strike > 565 {
			t.Errorf("seed strike %v outside window [545, 565]", seed.Strike)
		}
		if seed.Underlying != "SPY" || seed.Expiration != "2024-09-13" {
			t.Errorf("seed identity = %s/%s, want SPY/2024-09-13", seed.Underlying, seed.Expiration)
		}
	}
}

func TestFixtureSource_ChainMissingFile(t *testing.T) {
	src := NewFixtureSource(t.TempDir())
	if _, err := src.Chain(context.Background(), "SPY", "2024-09-13", Window{}); err == nil {
		t.Error("Chain() with missing fixture should fail")
	}
}
