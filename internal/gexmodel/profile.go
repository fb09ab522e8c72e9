package gexmodel

import (
	"fmt"
	"sort"
	"time"

	"github.com/strikefeed/strikefeed/internal/model"
)

// BuildProfile computes a strike-indexed gamma exposure profile from one
// captured contract set. Calls contribute positive exposure, puts negative
// (the dealer short-put convention). vol applies flat across strikes.
func BuildProfile(recs []model.ContractRecord, underlying, expiration string, epochID, version int64, spot, vol float64, now time.Time) (model.GammaProfile, error) {
	expiry, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return model.GammaProfile{}, fmt.Errorf("parse expiration %q: %w", expiration, err)
	}
	years := expiry.Add(21 * time.Hour).Sub(now).Hours() / 24 / 365
	if years <= 0 {
		years = 1.0 / 365 / 24 // expired intraday, keep a sliver of time value
	}

	byStrike := make(map[float64]*model.StrikeExposure)
	for _, rec := range recs {
		exp, ok := byStrike[rec.Strike]
		if !ok {
			exp = &model.StrikeExposure{Strike: rec.Strike}
			byStrike[rec.Strike] = exp
		}

		gamma := Gamma(spot, rec.Strike, vol, years)
		gex := ContractGex(gamma, rec.OpenInterest, spot)

		switch rec.Right {
		case model.Call:
			exp.CallGex += gex
			exp.CallOI += rec.OpenInterest
		case model.Put:
			exp.PutGex -= gex
			exp.PutOI += rec.OpenInterest
		}
	}

	strikes := make([]model.StrikeExposure, 0, len(byStrike))
	var total float64
	for _, exp := range byStrike {
		exp.NetGex = exp.CallGex + exp.PutGex
		total += exp.NetGex
		strikes = append(strikes, *exp)
	}
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })

	return model.GammaProfile{
		TS:           float64(now.UnixMicro()) / 1e6,
		Underlying:   underlying,
		Expiration:   expiration,
		EpochID:      epochID,
		EpochVersion: version,
		Spot:         spot,
		ZeroGamma:    zeroGamma(strikes),
		TotalNetGex:  total,
		Strikes:      strikes,
	}, nil
}

// zeroGamma finds the strike where cumulative net exposure crosses zero,
// interpolated between the bracketing strikes. Returns 0 when the profile
// never changes sign.
func zeroGamma(strikes []model.StrikeExposure) float64 {
	if len(strikes) < 2 {
		return 0
	}

	cum := make([]float64, len(strikes))
	running := 0.0
	for i, s := range strikes {
		running += s.NetGex
		cum[i] = running
	}

	for i := 1; i < len(cum); i++ {
		a, b := cum[i-1], cum[i]
		if a == 0 {
			return strikes[i-1].Strike
		}
		if (a < 0) != (b < 0) {
			// Linear interpolation between the bracketing strikes.
			frac := a / (a - b)
			return strikes[i-1].Strike + frac*(strikes[i].Strike-strikes[i-1].Strike)
		}
	}
	return 0
}
