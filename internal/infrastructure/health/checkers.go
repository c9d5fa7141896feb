package health

import (
	"context"

	"github.com/agileview/reporting/go/internal/core/ports"
	infraDB "github.com/agileview/reporting/go/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client *redis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// trackerHealthChecker probes the upstream tracker with a cheap read.
type trackerHealthChecker struct {
	tracker ports.IssueTracker
	probeID int
}

func (t *trackerHealthChecker) Name() string { return "tracker" }
func (t *trackerHealthChecker) Check(ctx context.Context) error {
	if t.probeID <= 0 {
		return nil
	}
	_, err := t.tracker.GetSprint(ctx, t.probeID)
	return err
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewTrackerHealthChecker creates a health checker that reads one known
// sprint from the tracker. A probeID of 0 disables the probe.
func NewTrackerHealthChecker(tracker ports.IssueTracker, probeID int) ports.HealthChecker {
	return &trackerHealthChecker{tracker: tracker, probeID: probeID}
}
