package gexmodel

import (
	"math"
	"testing"
	"time"

	"github.com/strikefeed/strikefeed/internal/model"
)

func TestGamma(t *testing.T) {
	t.Run("peaks at the money", func(t *testing.T) {
		atm := Gamma(550, 550, 0.18, 7.0/365)
		itm := Gamma(550, 520, 0.18, 7.0/365)
		otm := Gamma(550, 580, 0.18, 7.0/365)

		if atm <= 0 {
			t.Fatalf("Gamma(ATM) = %v, want > 0", atm)
		}
		if atm <= itm || atm <= otm {
			t.Errorf("Gamma ATM %v not above wings (%v, %v)", atm, itm, otm)
		}
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		if g := Gamma(0, 550, 0.18, 0.1); g != 0 {
			t.Errorf("Gamma(zero spot) = %v, want 0", g)
		}
		if g := Gamma(550, 550, 0, 0.1); g != 0 {
			t.Errorf("Gamma(zero vol) = %v, want 0", g)
		}
		if g := Gamma(550, 550, 0.18, 0); g != 0 {
			t.Errorf("Gamma(zero tenor) = %v, want 0", g)
		}
	})
}

func record(strike float64, right model.OptionRight, oi int64) model.ContractRecord {
	return model.ContractRecord{
		Symbol:       "SPY240913" + string(right) + "00000000",
		Underlying:   "SPY",
		Expiration:   "2024-09-13",
		Strike:       strike,
		Right:        right,
		OpenInterest: oi,
	}
}

func TestBuildProfile(t *testing.T) {
	now := time.Date(2024, 9, 6, 10, 0, 0, 0, time.UTC)
	recs := []model.ContractRecord{
		record(545, model.Call, 1000),
		record(545, model.Put, 3000),
		record(550, model.Call, 2000),
		record(550, model.Put, 2000),
		record(555, model.Call, 3000),
		record(555, model.Put, 1000),
	}

	profile, err := BuildProfile(recs, "SPY", "2024-09-13", 7, 42, 550, 0.18, now)
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}

	if profile.EpochID != 7 || profile.EpochVersion != 42 {
		t.Errorf("epoch tag = %d/%d, want 7/42", profile.EpochID, profile.EpochVersion)
	}
	if profile.Spot != 550 {
		t.Errorf("Spot = %v, want 550", profile.Spot)
	}
	if len(profile.Strikes) != 3 {
		t.Fatalf("len(Strikes) = %d, want 3", len(profile.Strikes))
	}

	// Strikes ascend.
	for i := 1; i < len(profile.Strikes); i++ {
		if profile.Strikes[i].Strike <= profile.Strikes[i-1].Strike {
			t.Errorf("strikes not ascending at %d: %v <= %v", i, profile.Strikes[i].Strike, profile.Strikes[i-1].Strike)
		}
	}

	for _, s := range profile.Strikes {
		if s.CallGex < 0 {
			t.Errorf("strike %v CallGex = %v, want >= 0", s.Strike, s.CallGex)
		}
		if s.PutGex > 0 {
			t.Errorf("strike %v PutGex = %v, want <= 0", s.Strike, s.PutGex)
		}
		if got := s.CallGex + s.PutGex; math.Abs(got-s.NetGex) > 1e-9 {
			t.Errorf("strike %v NetGex = %v, want %v", s.Strike, s.NetGex, got)
		}
	}

	// Put-heavy low strike is net negative, call-heavy high strike net positive.
	if profile.Strikes[0].NetGex >= 0 {
		t.Errorf("545 NetGex = %v, want negative", profile.Strikes[0].NetGex)
	}
	if profile.Strikes[2].NetGex <= 0 {
		t.Errorf("555 NetGex = %v, want positive", profile.Strikes[2].NetGex)
	}

	// Cumulative profile flips from negative to positive inside the band.
	if profile.ZeroGamma < 545 || profile.ZeroGamma > 555 {
		t.Errorf("ZeroGamma = %v, want within [545, 555]", profile.ZeroGamma)
	}

	var total float64
	for _, s := range profile.Strikes {
		total += s.NetGex
	}
	if math.Abs(profile.TotalNetGex-total) > 1e-9 {
		t.Errorf("TotalNetGex = %v, want %v", profile.TotalNetGex, total)
	}
}

func TestBuildProfile_NoFlip(t *testing.T) {
	now := time.Date(2024, 9, 6, 10, 0, 0, 0, time.UTC)
	recs := []model.ContractRecord{
		record(545, model.Call, 1000),
		record(550, model.Call, 2000),
	}

	profile, err := BuildProfile(recs, "SPY", "2024-09-13", 1, 1, 550, 0.18, now)
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}
	if profile.ZeroGamma != 0 {
		t.Errorf("ZeroGamma = %v, want 0 for all-positive profile", profile.ZeroGamma)
	}
}

func TestBuildProfile_BadExpiration(t *testing.T) {
	if _, err := BuildProfile(nil, "SPY", "bad", 1, 1, 550, 0.18, time.Now()); err == nil {
		t.Error("BuildProfile() with bad expiration should fail")
	}
}

func TestZeroGamma_Interpolates(t *testing.T) {
	strikes := []model.StrikeExposure{
		{Strike: 540, NetGex: -100},
		{Strike: 550, NetGex: 200}, // cumulative crosses zero between 540 and 550
	}
	got := zeroGamma(strikes)
	want := 545.0 // -100 -> +100 crosses halfway
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("zeroGamma() = %v, want %v", got, want)
	}
}
