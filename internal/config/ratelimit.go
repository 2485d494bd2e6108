package config

import "time"

// RateLimitConfig drives the Redis token bucket and the in-process limiter
// that replaces it when Redis is unreachable.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // bucket size, the burst a key may spend at once
    RefillTokens   int           // tokens added every RefillInterval
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after this
    KeyStrategy    string        // ip, user, route or a combination such as ip_route
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_*.  RATE_LIMIT_BURST overrides the
// capacity and RATE_LIMIT_REFILL_EVERY sets a one-token refill period.
func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "hotel:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
        c.Capacity = burst
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        c.RefillTokens, c.RefillInterval = 1, every
    }
    return c.normalized()
}

// normalized clamps the bucket to a usable shape.  Buckets must outlive a
// few refill periods or an idle key would reset to full capacity.
func (c RateLimitConfig) normalized() RateLimitConfig {
    c.Capacity = max(c.Capacity, 1)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    c.TTL = max(c.TTL, 5*c.RefillInterval)
    return c
}

// ForAuth is the budget for login, registration and password reset:
// AUTH_RATE_LIMIT_PER_MIN attempts per minute per client and route, 10 by
// default.
func (c RateLimitConfig) ForAuth() RateLimitConfig {
    perMin := max(envInt("AUTH_RATE_LIMIT_PER_MIN", 10), 1)
    c.Capacity = perMin
    c.RefillTokens = perMin
    c.RefillInterval = time.Minute
    c.KeyStrategy = "ip_route"
    c.Prefix += ":auth"
    return c.normalized()
}

// PerSecond is the steady refill rate of the bucket.
func (c RateLimitConfig) PerSecond() float64 {
    return float64(c.RefillTokens) / c.RefillInterval.Seconds()
}
