// Package model defines shared data types used across the chain hydration engine.
//
// Conventions:
//   - Prices: float64 dollars
//   - Timestamps: int64 microseconds since Unix epoch, unless a wire schema
//     says otherwise (snapshot blobs carry float epoch seconds)
//   - Expirations: "YYYY-MM-DD" strings
//   - Contract symbols: OCC-style, optionally prefixed "O:" on the wire
package model
