// Package cache is the memoization layer in front of the pipeline.
// Keys are deterministic content hashes of normalized document text;
// a miss or a cache failure always falls through to full computation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from document content. Content is
// normalized (trimmed, CRLF folded) so formatting noise does not defeat
// memoization.
func Key(scope, content string) string {
	normalized := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	hash := sha256.Sum256([]byte(normalized))
	return "chartline:v1:" + scope + ":" + hex.EncodeToString(hash[:])
}

// BatchKey generates a cache key covering an ordered set of contents,
// used for whole-pipeline results.
func BatchKey(scope string, contents []string) string {
	h := sha256.New()
	for _, c := range contents {
		normalized := strings.TrimSpace(strings.ReplaceAll(c, "\r\n", "\n"))
		h.Write([]byte(normalized))
		h.Write([]byte{0})
	}
	return "chartline:v1:" + scope + ":" + hex.EncodeToString(h.Sum(nil))
}
