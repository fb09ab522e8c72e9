package model

import "fmt"

// Key naming contract for the keyed store. Snapshot keys are immutable and
// TTL-bound; the latest pointer is the sole sanctioned entry point for
// consumers. Substrate-agnostic: any keyed store with TTL works.

// SnapshotKey returns the key for an immutable snapshot blob.
// captureTSMillis is the capture time in milliseconds since epoch.
func SnapshotKey(underlying, expiration string, captureTSMillis int64) string {
	return fmt.Sprintf("chain:snapshot:%s:%s:%d", underlying, expiration, captureTSMillis)
}

// LatestKey returns the pointer key holding the newest snapshot key for a pair.
func LatestKey(underlying, expiration string) string {
	return fmt.Sprintf("chain:latest:%s:%s", underlying, expiration)
}

// ModelKey returns the key for a derived model artifact.
func ModelKey(kind, underlying, expiration string) string {
	return fmt.Sprintf("chain:model:%s:%s:%s", kind, underlying, expiration)
}
