package gexmodel

import "math"

// ContractMultiplier is the share deliverable per option contract.
const ContractMultiplier = 100

// normPDF is the standard normal probability density.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// Gamma returns the Black-Scholes gamma for a European option. Gamma is
// identical for calls and puts. Rate and dividend yield are taken as zero,
// which is immaterial at the tenors the engine tracks.
func Gamma(spot, strike, vol, years float64) float64 {
	if spot <= 0 || strike <= 0 || vol <= 0 || years <= 0 {
		return 0
	}
	sqrtT := math.Sqrt(years)
	d1 := (math.Log(spot/strike) + (vol*vol/2)*years) / (vol * sqrtT)
	return normPDF(d1) / (spot * vol * sqrtT)
}

// ContractGex returns the dealer gamma exposure for one contract per 1%
// spot move, in dollars.
func ContractGex(gamma float64, openInterest int64, spot float64) float64 {
	return gamma * float64(openInterest) * ContractMultiplier * spot * spot * 0.01
}
