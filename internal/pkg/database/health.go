package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health pings the backing stores and reports each as "ok", "down" or
// "disabled". Redis is optional, so a nil client is disabled rather than down.
func Health(ctx context.Context, db Pinger, rdb redis.UniversalClient) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := map[string]string{"postgres": "ok", "redis": "disabled"}
	healthy := true

	if err := db.PingContext(ctx); err != nil {
		status["postgres"] = "down"
		healthy = false
	}
	if rdb != nil {
		status["redis"] = "ok"
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			healthy = false
		}
	}
	return status, healthy
}
