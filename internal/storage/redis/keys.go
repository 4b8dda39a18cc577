package redis

import (
	"fmt"

	"github.com/mcoot/pongrelay/internal/model"
)

// Key prefix for all relay data
const keyPrefix = "pongrelay"

// profileKey returns the Redis key for a Profile
func profileKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:profile:%s", keyPrefix, id)
}

// winsIndexKey returns the Redis key for the wins-ordered profile ZSET
func winsIndexKey() string {
	return fmt.Sprintf("%s:idx:wins", keyPrefix)
}

// resultsKey returns the Redis key for the recent-results LIST (newest first)
func resultsKey() string {
	return fmt.Sprintf("%s:results", keyPrefix)
}
