package redis

import "time"

// Config holds Redis connection and cache expiry settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// ProfileTTL bounds how long a fetched profile is served from cache
	ProfileTTL time.Duration

	// NotFoundTTL bounds how long a "no such character" answer is remembered
	NotFoundTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		ProfileTTL:   6 * time.Hour,
		NotFoundTTL:  10 * time.Minute,
	}
}
