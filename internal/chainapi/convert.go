package chainapi

import (
	"strings"

	"github.com/strikefeed/strikefeed/internal/model"
)

// NanosToMicros converts a nanosecond timestamp to microseconds.
// Returns 0 for zero or negative input.
func NanosToMicros(ns int64) int64 {
	if ns <= 0 {
		return 0
	}
	return ns / 1000
}

// ParseRight maps a provider contract type to an option right.
// Empty string means unrecognized.
func ParseRight(contractType string) model.OptionRight {
	switch strings.ToLower(contractType) {
	case "call", "c":
		return model.Call
	case "put", "p":
		return model.Put
	}
	return model.OptionRight("")
}

// ToSeed converts an API contract entry to a contract seed. The quote
// timestamp wins over the trade timestamp when both are present, matching
// the stale-event gate which compares against the freshest known state.
func (a *APIContract) ToSeed(underlying string) model.ContractSeed {
	updated := NanosToMicros(a.LastQuote.LastUpdated)
	if tradeTS := NanosToMicros(a.LastTrade.SipTimestamp); tradeTS > updated {
		updated = tradeTS
	}

	return model.ContractSeed{
		Symbol:       strings.TrimPrefix(a.Details.Ticker, "O:"),
		Underlying:   underlying,
		Expiration:   a.Details.ExpirationDate,
		Strike:       a.Details.StrikePrice,
		Right:        ParseRight(a.Details.ContractType),
		Bid:          a.LastQuote.Bid,
		Ask:          a.LastQuote.Ask,
		Last:         a.LastTrade.Price,
		Size:         a.LastTrade.Size,
		OpenInterest: a.OpenInterest,
		UpdatedTS:    updated,
	}
}
