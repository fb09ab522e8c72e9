package model

import "testing"

func TestFormatSymbol(t *testing.T) {
	sym, err := FormatSymbol("SPY", "2024-09-13", Call, 550)
	if err != nil {
		t.Fatalf("FormatSymbol() error = %v", err)
	}
	if sym != "SPY240913C00550000" {
		t.Errorf("FormatSymbol() = %s, want SPY240913C00550000", sym)
	}

	sym, err = FormatSymbol("spxw", "2024-12-20", Put, 5012.5)
	if err != nil {
		t.Fatalf("FormatSymbol() error = %v", err)
	}
	if sym != "SPXW241220P05012500" {
		t.Errorf("FormatSymbol() = %s, want SPXW241220P05012500", sym)
	}
}

func TestFormatSymbol_BadExpiration(t *testing.T) {
	if _, err := FormatSymbol("SPY", "09/13/2024", Call, 550); err == nil {
		t.Error("FormatSymbol() with bad expiration should fail")
	}
}

func TestParseSymbol(t *testing.T) {
	underlying, expiration, right, strike, err := ParseSymbol("SPY240913C00550000")
	if err != nil {
		t.Fatalf("ParseSymbol() error = %v", err)
	}
	if underlying != "SPY" {
		t.Errorf("underlying = %s, want SPY", underlying)
	}
	if expiration != "2024-09-13" {
		t.Errorf("expiration = %s, want 2024-09-13", expiration)
	}
	if right != Call {
		t.Errorf("right = %s, want C", right)
	}
	if strike != 550 {
		t.Errorf("strike = %v, want 550", strike)
	}
}

func TestParseSymbol_FeedPrefix(t *testing.T) {
	underlying, expiration, right, strike, err := ParseSymbol("O:SPXW241220P05012500")
	if err != nil {
		t.Fatalf("ParseSymbol() error = %v", err)
	}
	if underlying != "SPXW" {
		t.Errorf("underlying = %s, want SPXW", underlying)
	}
	if expiration != "2024-12-20" {
		t.Errorf("expiration = %s, want 2024-12-20", expiration)
	}
	if right != Put {
		t.Errorf("right = %s, want P", right)
	}
	if strike != 5012.5 {
		t.Errorf("strike = %v, want 5012.5", strike)
	}
}

func TestParseSymbol_RoundTrip(t *testing.T) {
	sym, err := FormatSymbol("QQQ", "2025-01-17", Put, 480)
	if err != nil {
		t.Fatalf("FormatSymbol() error = %v", err)
	}
	underlying, expiration, right, strike, err := ParseSymbol(sym)
	if err != nil {
		t.Fatalf("ParseSymbol(%s) error = %v", sym, err)
	}
	if underlying != "QQQ" || expiration != "2025-01-17" || right != Put || strike != 480 {
		t.Errorf("round trip = (%s, %s, %s, %v)", underlying, expiration, right, strike)
	}
}

func TestParseSymbol_Malformed(t *testing.T) {
	bad := []string{
		"",
		"SPY",
		"240913C00550000",      // no root
		"SPY240913X00550000",   // bad right
		"SPY249913C00550000",   // bad date
		"SPY240913C0055000x",   // bad strike
	}
	for _, sym := range bad {
		if _, _, _, _, err := ParseSymbol(sym); err == nil {
			t.Errorf("ParseSymbol(%q) should fail", sym)
		}
	}
}

func TestKeys(t *testing.T) {
	if got := SnapshotKey("SPY", "2024-09-13", 1726200000123); got != "chain:snapshot:SPY:2024-09-13:1726200000123" {
		t.Errorf("SnapshotKey() = %s", got)
	}
	if got := LatestKey("SPY", "2024-09-13"); got != "chain:latest:SPY:2024-09-13" {
		t.Errorf("LatestKey() = %s", got)
	}
	if got := ModelKey("gex", "SPY", "2024-09-13"); got != "chain:model:gex:SPY:2024-09-13" {
		t.Errorf("ModelKey() = %s", got)
	}
}

func TestContractRecord_Mid(t *testing.T) {
	c := ContractRecord{Bid: 1.00, Ask: 1.10, Last: 2.00}
	if got := c.Mid(); got != 1.05 {
		t.Errorf("Mid() = %v, want 1.05", got)
	}

	c = ContractRecord{Bid: 0, Ask: 1.10, Last: 2.00}
	if got := c.Mid(); got != 2.00 {
		t.Errorf("Mid() with empty bid = %v, want 2.00", got)
	}
}
