package chain

import (
	"fmt"
	"math"
	"time"

	"github.com/strikefeed/strikefeed/internal/spot"
)

// Default strike-range policy parameters.
const (
	DefaultStddevs = 2.0
	defaultVol     = 0.20 // fallback when the provider has no implied vol
	minWindowPct   = 0.01 // floor so near-dated windows never collapse
)

// Window is the strike-range policy applied to one chain fetch: a band
// around spot sized by implied vol and time to expiry.
type Window struct {
	Low         float64 // inclusive lower strike bound
	High        float64 // inclusive upper strike bound
	ATM         int     // at-the-money strike, whole points
	RangePoints int     // half-width in whole points
}

// ComputeWindow sizes the strike window for one expiration as
// stddevs * vol * spot * sqrt(years-to-expiry), floored at a fraction of
// spot so same-day expirations keep a usable band.
func ComputeWindow(sc spot.Context, expiration string, now time.Time, stddevs float64) (Window, error) {
	if sc.Price <= 0 {
		return Window{}, fmt.Errorf("spot price %v not positive", sc.Price)
	}
	if stddevs <= 0 {
		stddevs = DefaultStddevs
	}
	vol := sc.Vol
	if vol <= 0 {
		vol = defaultVol
	}

	expiry, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return Window{}, fmt.Errorf("parse expiration %q: %w", expiration, err)
	}
	// Expiry at end of trading day, so DTE=0 still has positive time value.
	expiry = expiry.Add(21 * time.Hour)

	years := expiry.Sub(now).Hours() / 24 / 365
	if years < 0 {
		return Window{}, fmt.Errorf("expiration %s already passed", expiration)
	}

	width := stddevs * vol * sc.Price * math.Sqrt(years)
	if floor := sc.Price * minWindowPct; width < floor {
		width = floor
	}

	return Window{
		Low:         sc.Price - width,
		High:        sc.Price + width,
		ATM:         int(math.Round(sc.Price)),
		RangePoints: int(math.Ceil(width)),
	}, nil
}
