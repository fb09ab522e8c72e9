// Package publish writes immutable snapshot blobs and derived-model
// artifacts to a TTL-bound keyed store and maintains the latest pointer per
// (underlying, expiration) pair.
//
// Consumers resolve state only through the latest pointer; snapshot keys are
// never enumerated or guessed. A failed publish leaves the previous pointer
// intact, which then goes organically stale per its TTL.
package publish
