// Package cache provides pluggable result caching for Lodestar.
//
// Simulating a large graph to a settled embedding is expensive; the cache
// stores derived artifacts (settled layout snapshots, rendered output) keyed
// by a content hash of the graph plus the options that produced them. The
// mutable simulation session itself is never persisted - only derived,
// reproducible results.
//
// Backends: [FileCache] for local CLI use, [RedisCache] for a shared server
// deployment, [NullCache] to disable caching.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with an optional TTL; zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLs per artifact class. Snapshots are pure functions of graph and options
// so they could live forever, but capping them keeps the file cache from
// growing without bound.
const (
	TTLSnapshot = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// SnapshotKey builds the cache key for a settled layout snapshot: a hash of
// the serialized graph layered with the simulation options that shape the
// result.
func SnapshotKey(graphJSON []byte, algorithm string, dof, steps int, tuningHash string) string {
	return hashKey("snapshot", Hash(graphJSON), algorithm, dof, steps, tuningHash)
}

// ArtifactKey builds the cache key for a rendered artifact derived from a
// snapshot.
func ArtifactKey(snapshotHash, format string) string {
	return hashKey("artifact", snapshotHash, format)
}
