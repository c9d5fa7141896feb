package cache

import (
	"context"
	"time"

	"github.com/agileview/reporting/go/internal/core/cachekey"
	"github.com/agileview/reporting/go/internal/core/domain/sprint"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Trust durations per sprint lifecycle state. The table is fixed: callers
// never pick TTLs per call.
const (
	TTLActive  = 5 * time.Minute
	TTLClosed  = 30 * 24 * time.Hour
	TTLFuture  = 15 * time.Minute
	TTLDefault = 10 * time.Minute

	// TTLSprintState bounds how long a sprint's cached state is consulted
	// for TTL decisions before re-checking upstream.
	TTLSprintState = time.Hour

	// TTLSprintList bounds the closed-sprints list of a board; it changes
	// only when a sprint closes.
	TTLSprintList = 30 * time.Minute
)

// TTLForState is the pure state→duration mapping.
func TTLForState(state sprint.State) time.Duration {
	switch state {
	case sprint.StateActive:
		return TTLActive
	case sprint.StateClosed:
		return TTLClosed
	case sprint.StateFuture:
		return TTLFuture
	}
	return TTLDefault
}

// Resolver decides how long cache entries derived from a sprint may be
// trusted. The sprint's state is itself cached; resolving it never becomes
// a hard dependency for the caller.
type Resolver struct {
	store   ports.CacheStore
	tracker ports.IssueTracker
	logger  *logrus.Logger
	sf      singleflight.Group
}

func NewResolver(store ports.CacheStore, tracker ports.IssueTracker, logger *logrus.Logger) *Resolver {
	return &Resolver{store: store, tracker: tracker, logger: logger}
}

// ResolveSprintTTL returns the trust duration for entries derived from the
// sprint. Any failure to determine the state falls back to the default TTL.
func (r *Resolver) ResolveSprintTTL(ctx context.Context, sprintID int) time.Duration {
	return TTLForState(r.SprintState(ctx, sprintID))
}

// SprintState returns the sprint's cached lifecycle state, fetching and
// caching it on a miss. Returns the empty (unknown) state on failure.
func (r *Resolver) SprintState(ctx context.Context, sprintID int) sprint.State {
	key := cachekey.SprintState(sprintID)

	if b, ok, err := r.store.Get(ctx, key); err == nil && ok {
		cacheHitsTotal.WithLabelValues(keyNamespace(key)).Inc()
		return sprint.ParseState(string(b))
	} else if err != nil && r.logger != nil {
		r.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("cache read failed, falling through to upstream")
	}
	cacheMissesTotal.WithLabelValues(keyNamespace(key)).Inc()

	res, err, _ := r.sf.Do(key, func() (any, error) {
		s, err := r.tracker.GetSprint(ctx, sprintID)
		if err != nil {
			return nil, err
		}
		upstreamFetchesTotal.WithLabelValues(keyNamespace(key)).Inc()
		if err := r.store.Set(ctx, key, []byte(s.State), TTLSprintState); err != nil && r.logger != nil {
			r.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("cache write failed")
		}
		return s.State, nil
	})
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"sprint_id": sprintID}).WithError(err).Warn("sprint state fetch failed, using default TTL")
		}
		return ""
	}
	state, _ := res.(sprint.State)
	return state
}
