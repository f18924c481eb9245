package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 5 * time.Second

// PoolStats is the connection pool snapshot reported by /health. A pool with
// zero open connections cannot serve billing traffic and reports unhealthy
// even when the ping races a reconnect.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// healthReport is the /health response body.
type healthReport struct {
	Status string     `json:"status"`
	Error  string     `json:"error,omitempty"`
	Pool   *PoolStats `json:"pool"`
}

func snapshotPool(pool *pgxpool.Pool) *PoolStats {
	s := pool.Stat()
	return &PoolStats{
		TotalConns:      s.TotalConns(),
		IdleConns:       s.IdleConns(),
		AcquiredConns:   s.AcquiredConns(),
		MaxConns:        s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration().String(),
		Healthy:         s.TotalConns() > 0,
	}
}

// buildHealthReport folds the ping result into the pool snapshot and picks
// the HTTP status. A failed ping wins over whatever the snapshot says.
func buildHealthReport(stats *PoolStats, pingErr error) (int, healthReport) {
	if pingErr != nil {
		stats.Healthy = false
		return http.StatusServiceUnavailable, healthReport{
			Status: "unhealthy",
			Error:  pingErr.Error(),
			Pool:   stats,
		}
	}
	return http.StatusOK, healthReport{Status: "healthy", Pool: stats}
}

// HealthHandler serves the readiness check: a bounded ping against the
// ledger database plus the current pool snapshot.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		code, report := buildHealthReport(snapshotPool(pool), pool.Ping(ctx))
		return c.JSON(code, report)
	}
}
