package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// ProfileTTL caps how long an inactive profile is retained
	ProfileTTL time.Duration

	// ResultHistory is how many recent match results to keep
	ResultHistory int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:           "redis://localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		ProfileTTL:    30 * 24 * time.Hour,
		ResultHistory: 500,
	}
}
