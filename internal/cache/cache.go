// Package cache holds the in-process caches used by the currency converter.
package cache

import "time"

// Cache defines a generic keyed cache.
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache, replacing any previous one
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear drops every entry
	Clear()

	// Size returns the number of stored entries, expired ones included
	Size() int
}

// Clock returns the current time. Tests swap it to move time forward.
type Clock func() time.Time
