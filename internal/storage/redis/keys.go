package redis

import (
	"fmt"
	"strings"
)

// Key prefix for all bot data
const keyPrefix = "guildbot"

// profileKey returns the Redis key for a cached character profile. Names are
// case-folded because the lookup service treats them case-insensitively.
func profileKey(region, server, name string) string {
	return fmt.Sprintf("%s:profile:%s:%s:%s", keyPrefix, region, server, strings.ToLower(name))
}

// missKey returns the Redis key remembering that a character does not exist
func missKey(region, server, name string) string {
	return fmt.Sprintf("%s:miss:%s:%s:%s", keyPrefix, region, server, strings.ToLower(name))
}
