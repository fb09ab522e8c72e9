package chainapi

// ExpirationsResponse from GET /v1/chains/{underlying}/expirations
type ExpirationsResponse struct {
	Underlying  string   `json:"underlying"`
	Expirations []string `json:"expirations"` // "YYYY-MM-DD", ascending
}

// ChainResponse from GET /v1/chains/{underlying}/{expiration}
type ChainResponse struct {
	Contracts []APIContract `json:"contracts"`
	Cursor    string        `json:"cursor"`
}

// APIContract is one contract entry in a chain response.
type APIContract struct {
	Details      APIDetails  `json:"details"`
	LastQuote    APIQuote    `json:"last_quote"`
	LastTrade    APITrade    `json:"last_trade"`
	OpenInterest int64       `json:"open_interest"`
	Greeks       *APIGreeks  `json:"greeks,omitempty"`
}

// APIDetails carries the immutable identity of a contract.
type APIDetails struct {
	Ticker         string  `json:"ticker"` // feed form, "O:" prefixed
	StrikePrice    float64 `json:"strike_price"`
	ContractType   string  `json:"contract_type"` // "call" or "put"
	ExpirationDate string  `json:"expiration_date"`
}

// APIQuote is the NBBO at fetch time. Timestamps in nanoseconds.
type APIQuote struct {
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	LastUpdated int64   `json:"last_updated"`
}

// APITrade is the most recent trade print. Timestamp in nanoseconds.
type APITrade struct {
	Price        float64 `json:"price"`
	Size         int64   `json:"size"`
	SipTimestamp int64   `json:"sip_timestamp"`
}

// APIGreeks are provider-computed greeks, present when the provider has an
// implied vol for the contract.
type APIGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	IV    float64 `json:"implied_volatility"`
}

// SpotResponse from GET /v1/spot/{underlying}
type SpotResponse struct {
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	IV30      float64 `json:"iv30"`      // 30-day implied vol, annualized
	UpdatedNS int64   `json:"updated"`   // nanoseconds since epoch
}

// GetChainOptions configures a chain fetch.
type GetChainOptions struct {
	StrikeGTE float64 // inclusive lower strike bound, 0 means unbounded
	StrikeLTE float64 // inclusive upper strike bound, 0 means unbounded
	Limit     int     // page size, provider max 250
	Cursor    string
}
