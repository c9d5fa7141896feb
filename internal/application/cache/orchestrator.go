package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agileview/reporting/go/internal/core/cachekey"
	"github.com/agileview/reporting/go/internal/core/domain/metrics"
	"github.com/agileview/reporting/go/internal/core/domain/sprint"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultRefreshTimeout bounds a detached background refresh.
const DefaultRefreshTimeout = 30 * time.Second

// OrchestratorConfig carries the optional collaborators and tuning knobs.
type OrchestratorConfig struct {
	Snapshots      ports.SnapshotRepository
	Email          ports.EmailSender
	NotifyEmail    string
	ReportBaseURL  string
	RefreshTimeout time.Duration
}

// Orchestrator coordinates warming, half-life background refresh and
// cascade invalidation. It owns no data; all state lives in the store.
type Orchestrator struct {
	store     ports.CacheStore
	tracker   ports.IssueTracker
	vcs       ports.SourceControl
	snapshots ports.SnapshotRepository
	email     ports.EmailSender
	logger    *logrus.Logger

	notifyEmail    string
	reportBaseURL  string
	refreshTimeout time.Duration
	inFlight       sync.Map // key → struct{}, dedups concurrent refreshes
}

func NewOrchestrator(store ports.CacheStore, tracker ports.IssueTracker, vcs ports.SourceControl, logger *logrus.Logger, cfg OrchestratorConfig) *Orchestrator {
	timeout := cfg.RefreshTimeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &Orchestrator{
		store:          store,
		tracker:        tracker,
		vcs:            vcs,
		snapshots:      cfg.Snapshots,
		email:          cfg.Email,
		logger:         logger,
		notifyEmail:    cfg.NotifyEmail,
		reportBaseURL:  cfg.ReportBaseURL,
		refreshTimeout: timeout,
	}
}

// comprehensiveReport is the warmed bundle a closed sprint leaves behind.
type comprehensiveReport struct {
	Sprint   sprint.Sprint          `json:"sprint"`
	Issues   []sprint.Issue         `json:"issues"`
	Velocity metrics.SprintVelocity `json:"velocity"`
	Commits  []ports.Commit         `json:"commits,omitempty"`
}

// WarmSprint eagerly populates every cache entry associated with a sprint
// once it reaches a terminal state. Entries are written with the closed TTL
// directly: the caller already knows the state, so the resolver is skipped.
// Failures are logged and returned; callers must be able to proceed without
// warming.
func (o *Orchestrator) WarmSprint(ctx context.Context, sprintID int, owner, repo string) error {
	s, err := o.tracker.GetSprint(ctx, sprintID)
	if err != nil {
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{"sprint_id": sprintID}).WithError(err).Error("cache warm failed fetching sprint")
		}
		return fmt.Errorf("warm sprint %d: %w", sprintID, err)
	}
	issues, err := o.tracker.ListSprintIssues(ctx, sprintID)
	if err != nil {
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{"sprint_id": sprintID}).WithError(err).Error("cache warm failed fetching issues")
		}
		return fmt.Errorf("warm sprint %d issues: %w", sprintID, err)
	}

	velocity := SprintVelocityRow(*s, issues)
	report := comprehensiveReport{Sprint: *s, Issues: issues, Velocity: velocity}

	if owner != "" && repo != "" {
		commits, err := o.vcs.ListCommits(ctx, owner, repo, s.StartDate, s.EndDate)
		if err != nil {
			// Commits enrich the report but do not gate the warm.
			if o.logger != nil {
				o.logger.WithFields(logrus.Fields{"sprint_id": sprintID, "owner": owner, "repo": repo}).WithError(err).Warn("cache warm skipping commits")
			}
		} else {
			report.Commits = commits
		}
	}

	items := make(map[string][]byte)
	metaBytes, _ := json.Marshal(refreshMeta{CreatedAt: time.Now().UTC()})
	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		items[key] = b
		items[cachekey.RefreshMeta(key)] = metaBytes
		return nil
	}
	if err := put(cachekey.SprintIssues(sprintID), issues); err != nil {
		return err
	}
	if err := put(cachekey.SprintMetric(sprintID, "velocity"), velocity); err != nil {
		return err
	}
	if err := put(cachekey.Comprehensive(sprintID, "report"), report); err != nil {
		return err
	}
	items[cachekey.SprintState(sprintID)] = []byte(s.State)

	if err := o.store.SetMany(ctx, items, TTLClosed); err != nil {
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{"sprint_id": sprintID}).WithError(err).Error("cache warm failed writing entries")
		}
		return fmt.Errorf("warm sprint %d write: %w", sprintID, err)
	}

	o.saveSnapshot(ctx, s, velocity)
	o.notifyReportReady(ctx, s)

	if o.logger != nil {
		o.logger.WithFields(logrus.Fields{"sprint_id": sprintID, "entries": len(items)}).Info("sprint cache warmed")
	}
	return nil
}

func (o *Orchestrator) saveSnapshot(ctx context.Context, s *sprint.Sprint, velocity metrics.SprintVelocity) {
	if o.snapshots == nil {
		return
	}
	payload, err := json.Marshal(velocity)
	if err != nil {
		return
	}
	snap := &metrics.Snapshot{
		ID:          uuid.New(),
		BoardID:     s.BoardID,
		SprintID:    s.ID,
		Metric:      "velocity",
		Payload:     payload,
		GeneratedAt: time.Now().UTC(),
	}
	if err := o.snapshots.Save(ctx, snap); err != nil && o.logger != nil {
		o.logger.WithFields(logrus.Fields{"sprint_id": s.ID}).WithError(err).Warn("failed to persist metric snapshot")
	}
}

func (o *Orchestrator) notifyReportReady(ctx context.Context, s *sprint.Sprint) {
	if o.email == nil || o.notifyEmail == "" {
		return
	}
	url := fmt.Sprintf("%s/boards/%d/sprints/%d", strings.TrimRight(o.reportBaseURL, "/"), s.BoardID, s.ID)
	if err := o.email.SendReportReady(ctx, o.notifyEmail, s.Name, url); err != nil && o.logger != nil {
		o.logger.WithFields(logrus.Fields{"sprint_id": s.ID}).WithError(err).Warn("failed to send report-ready notification")
	}
}

// RefreshFunc recomputes the value behind a cache key.
type RefreshFunc func(ctx context.Context) ([]byte, error)

// ScheduleRefresh checks the key's refresh metadata and, once the entry has
// lived past half its TTL, launches a detached refresh that overwrites the
// value and metadata. The caller is never blocked; a failed refresh is
// logged and the stale-but-valid entry stays serviceable.
func (o *Orchestrator) ScheduleRefresh(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc) {
	metaKey := cachekey.RefreshMeta(key)
	b, ok, err := o.store.Get(ctx, metaKey)
	if err != nil || !ok {
		return
	}
	var meta refreshMeta
	if json.Unmarshal(b, &meta) != nil {
		return
	}
	if time.Since(meta.CreatedAt) <= ttl/2 {
		return
	}
	if _, loaded := o.inFlight.LoadOrStore(key, struct{}{}); loaded {
		return
	}

	go func() {
		defer o.inFlight.Delete(key)

		rctx, cancel := context.WithTimeout(context.Background(), o.refreshTimeout)
		defer cancel()

		fresh, err := refresh(rctx)
		if err != nil {
			backgroundRefreshesTotal.WithLabelValues("error").Inc()
			if o.logger != nil {
				o.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("background refresh failed")
			}
			return
		}
		metaBytes, _ := json.Marshal(refreshMeta{CreatedAt: time.Now().UTC()})
		if err := o.store.SetMany(rctx, map[string][]byte{key: fresh, metaKey: metaBytes}, ttl); err != nil {
			backgroundRefreshesTotal.WithLabelValues("error").Inc()
			if o.logger != nil {
				o.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("background refresh write failed")
			}
			return
		}
		backgroundRefreshesTotal.WithLabelValues("ok").Inc()
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{"key": key}).Debug("background refresh completed")
		}
	}()
}

// InvalidateSprint deletes every cache namespace touching the sprint.
// Patterns are attempted independently: one failure does not block the
// others, and the joined error reports whatever went wrong.
func (o *Orchestrator) InvalidateSprint(ctx context.Context, sprintID int) error {
	var errs []error
	for _, pattern := range cachekey.SprintInvalidation(sprintID) {
		if err := o.deleteByPattern(ctx, pattern); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", pattern, err))
			invalidatedPatternsTotal.WithLabelValues("error").Inc()
			continue
		}
		// The metadata twin must go with the value, or a later write would
		// inherit a stale half-life clock.
		if err := o.deleteByPattern(ctx, cachekey.RefreshMeta(pattern)); err != nil {
			errs = append(errs, fmt.Errorf("invalidate meta %s: %w", pattern, err))
			invalidatedPatternsTotal.WithLabelValues("error").Inc()
			continue
		}
		invalidatedPatternsTotal.WithLabelValues("ok").Inc()
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{"sprint_id": sprintID}).WithError(err).Warn("sprint invalidation incomplete")
		}
		return err
	}
	if o.logger != nil {
		o.logger.WithFields(logrus.Fields{"sprint_id": sprintID}).Debug("sprint cache invalidated")
	}
	return nil
}

func (o *Orchestrator) deleteByPattern(ctx context.Context, pattern string) error {
	if strings.ContainsRune(pattern, '*') {
		return o.store.DeletePattern(ctx, pattern)
	}
	return o.store.Delete(ctx, pattern)
}

// InvalidateIssue cascades an upstream issue mutation to every affected
// sprint: the issue's current sprint plus both sides of any sprint move in
// the changelog.
func (o *Orchestrator) InvalidateIssue(ctx context.Context, issue sprint.Issue, changeLog sprint.ChangeLog) error {
	ids := changeLog.SprintTransitions()
	if issue.SprintID > 0 {
		ids = appendUnique(ids, issue.SprintID)
	}
	if len(ids) == 0 {
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{"issue": issue.Key}).Debug("issue event touches no sprint, nothing to invalidate")
		}
		return nil
	}
	var errs []error
	for _, id := range ids {
		if err := o.InvalidateSprint(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func appendUnique(ids []int, id int) []int {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// SprintVelocityRow reduces one sprint's issues to its velocity row.
// Commitment sums all story points; completed sums points of issues in a
// terminal status; velocity equals completed.
func SprintVelocityRow(s sprint.Sprint, issues []sprint.Issue) metrics.SprintVelocity {
	row := metrics.SprintVelocity{
		SprintID:  s.ID,
		Name:      s.Name,
		StartDate: s.StartDate,
	}
	for _, issue := range issues {
		row.Commitment += issue.StoryPoints
		if issue.Completed() {
			row.Completed += issue.StoryPoints
		}
	}
	row.Velocity = row.Completed
	return row
}

var _ ports.Orchestrator = (*Orchestrator)(nil)
