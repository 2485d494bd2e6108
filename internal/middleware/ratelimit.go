package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/labstack/gommon/log"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/hotel-booking/internal/config"
)

// bucketScript refills and drains one bucket hash atomically.
// KEYS[1] bucket key
// ARGV    now_ms, capacity, refill_tokens, interval_ms, ttl_seconds
// returns {allowed(0|1), tokens_left, retry_after_ms}
var bucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local per = tonumber(ARGV[3])
local every = tonumber(ARGV[4])

local b = redis.call('HMGET', KEYS[1], 'tokens', 'stamp')
local tokens = tonumber(b[1]) or cap
local stamp = tonumber(b[2]) or now

if every > 0 and per > 0 and now > stamp then
  local steps = math.floor((now - stamp) / every)
  if steps > 0 then
    tokens = math.min(cap, tokens + steps * per)
    stamp = stamp + steps * every
  end
end

local ok, wait = 0, 0
if tokens >= 1 then
  ok = 1
  tokens = tokens - 1
else
  wait = math.max(0, every - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {ok, tokens, wait}
`)

// NewRateLimiter picks the shared Redis bucket when a client is available
// and the in-process limiter otherwise.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    switch {
    case !cfg.Enabled:
        return passThrough
    case rdb == nil:
        ml := NewMemoryLimiter(cfg)
        ml.StartSweeper(time.Minute, nil)
        return ml.Middleware()
    }
    return NewRedisBucket(cfg, rdb).Middleware()
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// RedisBucket is a token bucket per key kept in a Redis hash, so every API
// instance draws from the same budget.  When Redis fails the request is let
// through.
type RedisBucket struct {
    cfg config.RateLimitConfig
    rdb redis.Scripter
    now func() time.Time
}

func NewRedisBucket(cfg config.RateLimitConfig, rdb redis.Scripter) *RedisBucket {
    return &RedisBucket{cfg: cfg, rdb: rdb, now: time.Now}
}

// verdict is the decoded reply of bucketScript.
type verdict struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func parseVerdict(reply any) (verdict, bool) {
    arr, ok := reply.([]any)
    if !ok || len(arr) != 3 {
        return verdict{}, false
    }
    var v verdict
    v.allowed = toInt64(arr[0]) == 1
    v.remaining = toInt64(arr[1])
    v.retry = time.Duration(toInt64(arr[2])) * time.Millisecond
    return v, true
}

// take spends one token for key.
func (b *RedisBucket) take(c echo.Context, key string) (verdict, error) {
    reply, err := bucketScript.Run(c.Request().Context(), b.rdb, []string{key},
        b.now().UnixMilli(),
        b.cfg.Capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        int64(b.cfg.TTL/time.Second),
    ).Result()
    if err != nil {
        return verdict{}, err
    }
    v, ok := parseVerdict(reply)
    if !ok {
        return verdict{}, redis.Nil
    }
    return v, nil
}

func (b *RedisBucket) Middleware() echo.MiddlewareFunc {
    if !b.cfg.Enabled || b.rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(b.cfg, c)
            v, err := b.take(c, key)
            if err != nil {
                log.Warnf("ratelimit: bucket %s unavailable: %v", key, err)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(b.cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
            if b.cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if v.allowed {
                return next(c)
            }

            secs := retrySeconds(v.retry)
            h.Set("Retry-After", strconv.Itoa(secs))
            if b.cfg.Debug {
                log.Infof("ratelimit: blocked %s for %ds", key, secs)
            }
            return tooManyRequests(c, secs)
        }
    }
}

func retrySeconds(d time.Duration) int {
    if d <= 0 {
        return 0
    }
    return int(math.Ceil(d.Seconds()))
}

func toInt64(v any) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}

// keyStrategies lists the identity parts each strategy puts in a bucket key.
var keyStrategies = map[string][]string{
    "ip":         {"ip"},
    "user":       {"user"},
    "route":      {"route"},
    "ip_user":    {"ip", "user"},
    "ip_route":   {"ip", "route"},
    "user_route": {"user", "route"},
}

// buildRateKey joins the prefix with the parts named by the configured
// strategy.  Unknown strategies key on ip, user and route together.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts, ok := keyStrategies[strings.ToLower(cfg.KeyStrategy)]
    if !ok {
        parts = []string{"ip", "user", "route"}
    }
    key := []string{cfg.Prefix}
    for _, p := range parts {
        key = append(key, p, keyPart(c, p))
    }
    return strings.Join(key, ":")
}

func keyPart(c echo.Context, part string) string {
    switch part {
    case "ip":
        if ip := c.RealIP(); ip != "" {
            return ip
        }
        return "unknown"
    case "user":
        return identityKey(c)
    default:
        return c.Request().Method + " " + c.Path()
    }
}

func tooManyRequests(c echo.Context, retryAfter int) error {
    return c.JSON(http.StatusTooManyRequests, map[string]any{
        "error":       "too many requests, retry later",
        "retry_after": retryAfter,
    })
}
