package cache

import "time"

// Cache is a minimal string cache used for read-through caching of hot
// lookups (pantry display names during redemption). Implementations must
// treat a missing key as ("", nil), not as an error.
type Cache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
	Delete(key string) error
}
