package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Cache stores formatted context blocks keyed by query.
type Cache interface {
	// GetContext returns the cached context block and whether it was found.
	GetContext(ctx context.Context, key string) (string, bool, error)

	// SetContext stores a context block with TTL
	SetContext(ctx context.Context, key, value string, ttl time.Duration) error

	// Invalidate removes every cached context, used after reindexing.
	Invalidate(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// GenerateCacheKey derives a stable key from a single query and its top-k.
// Queries differing only in case or whitespace share a key.
func GenerateCacheKey(query string, topK int) string {
	h := sha256.New()
	h.Write([]byte(NormalizeQuery(query)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(topK)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// NormalizeQuery lower-cases query and collapses runs of whitespace.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
