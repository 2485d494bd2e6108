package handler

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the process and its backing stores are up.
// A nil Redis client is reported as "disabled" and does not fail the check.
type HealthHandler struct {
    DB    *sql.DB
    Redis *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
    return &HealthHandler{DB: db, Redis: rdb}
}

// Health is used by load balancers and monitoring.  It answers 200 when the
// database responds and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    status := http.StatusOK
    db := "ok"
    if h.DB == nil {
        db = "disabled"
    } else if err := h.DB.PingContext(ctx); err != nil {
        db = "down"
        status = http.StatusServiceUnavailable
    }

    cache := "disabled"
    if h.Redis != nil {
        cache = "ok"
        if err := h.Redis.Ping(ctx).Err(); err != nil {
            cache = "down"
        }
    }
    return c.JSON(status, echo.Map{"status": http.StatusText(status), "database": db, "redis": cache})
}
