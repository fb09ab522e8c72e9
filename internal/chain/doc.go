// Package chain owns epoch construction: it resolves tracked expirations,
// sizes a strike window from spot context, fetches full chains, and swaps
// fresh epochs into the store.
//
// The refresher keeps the previous epoch and pointer live when a fetch
// fails; consumers see stale-but-valid data until the next successful
// refresh.
package chain
