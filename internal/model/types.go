package model

// -----------------------------------------------------------------------------
// Contract State
// -----------------------------------------------------------------------------

// OptionRight is the side of an option contract.
type OptionRight string

const (
	Call OptionRight = "C"
	Put  OptionRight = "P"
)

// ContractSeed is the initial state of one contract as returned by a full
// chain fetch. Identity fields plus starting quote values.
type ContractSeed struct {
	Symbol     string      // OCC-style symbol (e.g. "SPY240913C00550000")
	Underlying string      // Underlying ticker (e.g. "SPY")
	Expiration string      // "YYYY-MM-DD"
	Strike     float64     // Strike price in dollars
	Right      OptionRight // Call or Put

	Bid          float64
	Ask          float64
	Last         float64
	Size         int64 // Last trade size
	OpenInterest int64
	UpdatedTS    int64 // µs since epoch; 0 if the source gave no quote time
}

// ContractRecord is the live state of one contract within an epoch.
// Identity fields never change after creation; only quote fields do.
type ContractRecord struct {
	Symbol     string
	Underlying string
	Expiration string
	Strike     float64
	Right      OptionRight

	Bid          float64
	Ask          float64
	Last         float64
	Size         int64
	OpenInterest int64
	UpdatedTS    int64 // µs since epoch, gate for stale-event rejection
}

// Mid returns the quote midpoint, falling back to the last trade price when
// one side of the book is empty.
func (c *ContractRecord) Mid() float64 {
	if c.Bid > 0 && c.Ask > 0 {
		return (c.Bid + c.Ask) / 2
	}
	return c.Last
}

// -----------------------------------------------------------------------------
// Trade Events
// -----------------------------------------------------------------------------

// TradeEvent is the canonical form of one trade message from the feed.
// Transient; consumed once by the hydrator.
type TradeEvent struct {
	Symbol  string  // Contract symbol, "O:" prefix stripped
	Price   float64 // Trade price in dollars
	Size    int64   // Number of contracts
	EventTS int64   // Exchange timestamp (µs since epoch)
}

// -----------------------------------------------------------------------------
// Snapshot Wire Schema
// -----------------------------------------------------------------------------

// ContractState is the serialized form of one contract inside a snapshot.
type ContractState struct {
	Symbol       string  `json:"symbol"`
	Strike       float64 `json:"strike"`
	Right        string  `json:"right"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Mid          float64 `json:"mid"`
	Last         float64 `json:"last"`
	Size         int64   `json:"size"`
	OpenInterest int64   `json:"open_interest"`
	UpdatedTS    int64   `json:"updated_ts"` // µs since epoch
}

// Snapshot is the immutable point-in-time serialization of one epoch.
// Field names and types are a stable wire contract.
type Snapshot struct {
	TS          float64         `json:"ts"` // float epoch seconds
	Underlying  string          `json:"underlying"`
	Expiration  string          `json:"expiration"` // "YYYY-MM-DD"
	ATM         int             `json:"atm"`        // at-the-money strike, whole points
	RangePoints int             `json:"range_points"`
	Contracts   []ContractState `json:"contracts"` // ordered by strike, calls before puts
}

// -----------------------------------------------------------------------------
// Derived Models
// -----------------------------------------------------------------------------

// StrikeExposure is the net dealer gamma exposure at one strike.
type StrikeExposure struct {
	Strike   float64 `json:"strike"`
	CallGex  float64 `json:"call_gex"`
	PutGex   float64 `json:"put_gex"`
	NetGex   float64 `json:"net_gex"`
	CallOI   int64   `json:"call_oi"`
	PutOI    int64   `json:"put_oi"`
}

// GammaProfile is a strike-indexed exposure model derived from one epoch.
// EpochVersion tags the exact store state the profile was computed from so
// staleness is detectable downstream.
type GammaProfile struct {
	TS           float64          `json:"ts"` // float epoch seconds
	Underlying   string           `json:"underlying"`
	Expiration   string           `json:"expiration"`
	EpochID      int64            `json:"epoch_id"`
	EpochVersion int64            `json:"epoch_version"`
	Spot         float64          `json:"spot"`
	ZeroGamma    float64          `json:"zero_gamma"` // strike where net gex flips sign, 0 if none
	TotalNetGex  float64          `json:"total_net_gex"`
	Strikes      []StrikeExposure `json:"strikes"`
}
