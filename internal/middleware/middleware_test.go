package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/hotel-booking/internal/config"
    "github.com/iliyamo/hotel-booking/internal/utils"
)

const testSecret = "test-secret"

func okHandler(c echo.Context) error {
    id, _ := UserID(c)
    return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": Role(c)})
}

func serve(t *testing.T, mw []echo.MiddlewareFunc, authz string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    e.GET("/x", okHandler, mw...)
    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    if authz != "" {
        req.Header.Set("Authorization", authz)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func bearer(t *testing.T, uid uint64, role string) string {
    t.Helper()
    at, err := utils.NewAccessToken(testSecret, uid, role, 5)
    if err != nil {
        t.Fatal(err)
    }
    return "Bearer " + at.Token
}

func TestTiers(t *testing.T) {
    cases := []struct {
        tier, role string
        want       int
    }{
        {TierAdmin, "admin", http.StatusOK},
        {TierAdmin, "user", http.StatusForbidden},
        {TierUser, "user", http.StatusOK},
        {TierUser, "admin", http.StatusForbidden},
        {TierAny, "user", http.StatusOK},
        {TierAny, "admin", http.StatusOK},
        {TierAny, "guest", http.StatusForbidden},
        {"bogus", "admin", http.StatusForbidden},
    }
    for _, tc := range cases {
        rec := serve(t, Authenticated(testSecret, tc.tier), bearer(t, 3, tc.role))
        if rec.Code != tc.want {
            t.Errorf("tier %s role %s: status %d, want %d", tc.tier, tc.role, rec.Code, tc.want)
        }
    }
}

func TestJWTAuthRejects(t *testing.T) {
    mw := Authenticated(testSecret, TierAny)
    if rec := serve(t, mw, ""); rec.Code != http.StatusUnauthorized {
        t.Errorf("missing header: %d", rec.Code)
    }
    if rec := serve(t, mw, "Bearer garbage"); rec.Code != http.StatusUnauthorized {
        t.Errorf("garbage token: %d", rec.Code)
    }
    other, _ := utils.NewAccessToken("other-secret", 1, "admin", 5)
    if rec := serve(t, mw, "Bearer "+other.Token); rec.Code != http.StatusUnauthorized {
        t.Errorf("foreign signature: %d", rec.Code)
    }
    reset, _ := utils.NewResetToken(testSecret, 1, "hash", 5)
    if rec := serve(t, mw, "Bearer "+reset.Token); rec.Code != http.StatusUnauthorized {
        t.Errorf("reset token accepted as access token: %d", rec.Code)
    }
}

func TestJWTAuthSetsIdentity(t *testing.T) {
    rec := serve(t, Authenticated(testSecret, TierAny), bearer(t, 42, "user"))
    if rec.Code != http.StatusOK {
        t.Fatalf("status %d", rec.Code)
    }
    if body := rec.Body.String(); body != "{\"role\":\"user\",\"user_id\":42}\n" {
        t.Fatalf("body = %s", body)
    }
}

func TestMemoryLimiter(t *testing.T) {
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Minute,
        TTL:            time.Minute,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
    ml := NewMemoryLimiter(cfg)
    clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
    ml.now = func() time.Time { return clock }
    mw := []echo.MiddlewareFunc{ml.Middleware()}

    for i := 0; i < 2; i++ {
        if rec := serve(t, mw, ""); rec.Code != http.StatusOK {
            t.Fatalf("request %d: status %d", i, rec.Code)
        }
    }
    rec := serve(t, mw, "")
    if rec.Code != http.StatusTooManyRequests {
        t.Fatalf("third request: status %d, want 429", rec.Code)
    }
    if rec.Header().Get("Retry-After") == "" {
        t.Fatal("Retry-After missing")
    }

    clock = clock.Add(time.Minute)
    if rec := serve(t, mw, ""); rec.Code != http.StatusOK {
        t.Fatalf("after refill: status %d", rec.Code)
    }

    clock = clock.Add(2 * time.Minute)
    if n := ml.Sweep(); n != 1 {
        t.Fatalf("swept %d keys, want 1", n)
    }
}

func TestResponseCacheDisabledWithoutRedis(t *testing.T) {
    rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
    rec := serve(t, []echo.MiddlewareFunc{rc.Middleware(ScopeHotels)}, "")
    if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
        t.Fatalf("status %d X-Cache %q", rec.Code, rec.Header().Get("X-Cache"))
    }
    if err := rc.Invalidate(context.Background(), ScopeHotels); err != nil {
        t.Fatal(err)
    }
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(200, hdr, []byte(`{"ok":true}`))
    if err != nil {
        t.Fatal(err)
    }
    status, got, body, ok := decodePayload(bs)
    if !ok || status != 200 || got.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
        t.Fatalf("decoded %d %v %q %v", status, got, body, ok)
    }
    if _, _, _, ok := decodePayload([]byte{0, 1}); ok {
        t.Fatal("short payload decoded")
    }
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
    req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/api/auth/login")
    c.Set("user_id", uint64(12))

    cases := map[string]string{
        "ip":       "rl:ip:203.0.113.9",
        "USER":     "rl:user:12",
        "ip_route": "rl:ip:203.0.113.9:route:POST /api/auth/login",
        "":         "rl:ip:203.0.113.9:user:12:route:POST /api/auth/login",
    }
    for strategy, want := range cases {
        got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
        if got != want {
            t.Errorf("%q: key = %q, want %q", strategy, got, want)
        }
    }
}

func TestParseVerdict(t *testing.T) {
    v, ok := parseVerdict([]any{int64(0), int64(0), int64(1500)})
    if !ok || v.allowed || retrySeconds(v.retry) != 2 {
        t.Fatalf("verdict = %+v, %v", v, ok)
    }
    v, ok = parseVerdict([]any{int64(1), "4", int64(0)})
    if !ok || !v.allowed || v.remaining != 4 {
        t.Fatalf("verdict = %+v, %v", v, ok)
    }
    if _, ok := parseVerdict("OK"); ok {
        t.Fatal("scalar reply parsed")
    }
}

func TestRedisBucketFailsOpen(t *testing.T) {
    rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
    defer rdb.Close()
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
    mw := []echo.MiddlewareFunc{NewRedisBucket(cfg, rdb).Middleware()}
    for i := 0; i < 3; i++ {
        if rec := serve(t, mw, ""); rec.Code != http.StatusOK {
            t.Fatalf("request %d: status %d", i, rec.Code)
        }
    }
}
