package middleware

import (
    "math"
    "strconv"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "golang.org/x/time/rate"

    "github.com/iliyamo/hotel-booking/internal/config"
)

// visitor pairs a limiter with the last time its key was seen so idle keys
// can be evicted.
type visitor struct {
    limiter  *rate.Limiter
    lastSeen time.Time
}

// MemoryLimiter is the single-instance fallback used when Redis is not
// reachable.  Keys are built like the Redis bucket's.
type MemoryLimiter struct {
    cfg config.RateLimitConfig

    mu       sync.Mutex
    visitors map[string]*visitor
    now      func() time.Time
}

func NewMemoryLimiter(cfg config.RateLimitConfig) *MemoryLimiter {
    return &MemoryLimiter{
        cfg:      cfg,
        visitors: make(map[string]*visitor),
        now:      time.Now,
    }
}

func (m *MemoryLimiter) limiter(key string) *rate.Limiter {
    m.mu.Lock()
    defer m.mu.Unlock()

    now := m.now()
    if v, ok := m.visitors[key]; ok {
        v.lastSeen = now
        return v.limiter
    }
    l := rate.NewLimiter(rate.Limit(m.cfg.PerSecond()), m.cfg.Capacity)
    m.visitors[key] = &visitor{limiter: l, lastSeen: now}
    return l
}

// Sweep drops keys idle for longer than the configured TTL and returns how
// many were removed.
func (m *MemoryLimiter) Sweep() int {
    m.mu.Lock()
    defer m.mu.Unlock()
    cutoff := m.now().Add(-m.cfg.TTL)
    n := 0
    for k, v := range m.visitors {
        if v.lastSeen.Before(cutoff) {
            delete(m.visitors, k)
            n++
        }
    }
    return n
}

func (m *MemoryLimiter) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(m.cfg, c)
            r := m.limiter(key).ReserveN(m.now(), 1)
            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(m.cfg.Capacity))
            if delay := r.DelayFrom(m.now()); !r.OK() || delay > 0 {
                r.CancelAt(m.now())
                secs := int(math.Ceil(delay.Seconds()))
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return tooManyRequests(c, secs)
            }
            return next(c)
        }
    }
}

// StartSweeper evicts idle keys every interval until stop is closed.
func (m *MemoryLimiter) StartSweeper(interval time.Duration, stop <-chan struct{}) {
    go func() {
        t := time.NewTicker(interval)
        defer t.Stop()
        for {
            select {
            case <-t.C:
                m.Sweep()
            case <-stop:
                return
            }
        }
    }()
}
