// Package store holds the epoch store, the only shared mutable state in the
// hydration core.
//
// An epoch is a versioned container of contract records for one
// (underlying, expiration) pair, created wholesale from a full chain fetch
// and replaced atomically by the next one. Hydration writes mutate quote
// fields of existing records only; the contract set is fixed at creation.
// Every accepted write bumps the epoch version, which readers use to detect
// change and to tag derived artifacts.
package store
