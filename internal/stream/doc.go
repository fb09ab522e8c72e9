// Package stream ingests the high-frequency trade feed.
//
// A Source maintains a continuous, per-underlying-ordered sequence of
// canonical trade events from either a live websocket or a recorded fixture.
// Raw frames are normalized into model.TradeEvent; malformed frames are
// counted and discarded, never surfaced as errors. Events land in a bounded
// ring that drops the oldest entries under sustained overload, since late
// updates would be rejected by the hydrator's timestamp gate anyway.
package stream
