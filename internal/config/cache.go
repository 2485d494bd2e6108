package config

import (
    "strings"
    "time"
)

// CacheConfig configures the Redis response cache in front of the public
// hotel and room listings.  Room availability is never cached.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string // route, method_route, method_route_query or route_query
    Prefix       string
    MaxBodyBytes int // larger responses are served but not stored
}

func LoadCacheConfig() CacheConfig {
    methods := map[string]bool{}
    for _, m := range splitList(envStr("CACHE_METHODS", "GET")) {
        methods[strings.ToUpper(m)] = true
    }
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      methods,
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "hotel:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

// Caches reports whether responses to method are stored.
func (c CacheConfig) Caches(method string) bool {
    return c.Enabled && c.Methods[strings.ToUpper(method)]
}
