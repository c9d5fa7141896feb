package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	appcache "github.com/agileview/reporting/go/internal/application/cache"
	"github.com/agileview/reporting/go/internal/core/cachekey"
	"github.com/agileview/reporting/go/internal/core/domain/metrics"
	"github.com/agileview/reporting/go/internal/core/domain/sprint"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// typePalette maps common issue types to chart colors; unknown types get
// the neutral fallback.
var typePalette = map[string]string{
	"Story":    "#36B37E",
	"Bug":      "#FF5630",
	"Task":     "#4C9AFF",
	"Epic":     "#6554C0",
	"Sub-task": "#FFAB00",
}

const typeColorFallback = "#8993A4"

// AnalyticsService computes derived metrics over a rolling window of
// closed sprints. The batch-fill engine is its only upstream access path
// for per-sprint data.
type AnalyticsService struct {
	store    ports.CacheStore
	tracker  ports.IssueTracker
	vcs      ports.SourceControl
	filler   *appcache.Filler
	resolver *appcache.Resolver
	orch     *appcache.Orchestrator
	logger   *logrus.Logger
	sf       singleflight.Group
}

func NewAnalyticsService(store ports.CacheStore, tracker ports.IssueTracker, vcs ports.SourceControl, filler *appcache.Filler, resolver *appcache.Resolver, orch *appcache.Orchestrator, logger *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:    store,
		tracker:  tracker,
		vcs:      vcs,
		filler:   filler,
		resolver: resolver,
		orch:     orch,
		logger:   logger,
	}
}

// GetVelocity returns the board's velocity report over the most recent
// sprintCount closed sprints, newest first.
func (s *AnalyticsService) GetVelocity(ctx context.Context, boardID, sprintCount int) (*metrics.VelocityReport, error) {
	key := cachekey.Velocity(boardID, sprintCount)
	if cached, ok := appcache.GetJSON[metrics.VelocityReport](ctx, s.store, key); ok {
		s.orch.ScheduleRefresh(ctx, key, appcache.TTLDefault, func(rctx context.Context) ([]byte, error) {
			report, err := s.computeVelocity(rctx, boardID, sprintCount)
			if err != nil {
				return nil, err
			}
			return json.Marshal(report)
		})
		return cached, nil
	}

	report, err := s.computeVelocity(ctx, boardID, sprintCount)
	if err != nil {
		return nil, err
	}
	appcache.SetJSONWithMeta(ctx, s.store, key, report, appcache.TTLDefault)
	return report, nil
}

func (s *AnalyticsService) computeVelocity(ctx context.Context, boardID, sprintCount int) (*metrics.VelocityReport, error) {
	window, issueSets, err := s.sprintWindow(ctx, boardID, sprintCount)
	if err != nil {
		return nil, err
	}

	report := &metrics.VelocityReport{BoardID: boardID, Trend: metrics.TrendStable}
	var total float64
	for _, sp := range window {
		row := appcache.SprintVelocityRow(sp, issueSets[sp.ID])
		report.Sprints = append(report.Sprints, row)
		total += row.Velocity
	}
	if len(report.Sprints) > 0 {
		report.AverageVelo = total / float64(len(report.Sprints))
	}

	// Trend compares the chronological halves of the window.
	velocities := make([]float64, len(report.Sprints))
	for i, row := range report.Sprints {
		velocities[len(report.Sprints)-1-i] = row.Velocity
	}
	report.Trend = classifyTrend(velocities)
	return report, nil
}

// classifyTrend compares the mean velocity of the first (older) half of a
// chronological series to the second half. Fewer than 3 sprints is stable
// by default.
func classifyTrend(velocities []float64) metrics.Trend {
	if len(velocities) < 3 {
		return metrics.TrendStable
	}
	half := len(velocities) / 2
	first := mean(velocities[:half])
	second := mean(velocities[half:])
	switch {
	case second > first*1.1:
		return metrics.TrendIncreasing
	case second < first*0.9:
		return metrics.TrendDecreasing
	}
	return metrics.TrendStable
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// GetTeamPerformance returns per-sprint planned/completed/velocity rows,
// newest first, without trend classification.
func (s *AnalyticsService) GetTeamPerformance(ctx context.Context, boardID, sprintCount int) ([]metrics.SprintPerformance, error) {
	key := cachekey.TeamPerformance(boardID, sprintCount)
	if cached, ok := appcache.GetJSON[[]metrics.SprintPerformance](ctx, s.store, key); ok {
		s.orch.ScheduleRefresh(ctx, key, appcache.TTLDefault, func(rctx context.Context) ([]byte, error) {
			rows, err := s.computeTeamPerformance(rctx, boardID, sprintCount)
			if err != nil {
				return nil, err
			}
			return json.Marshal(rows)
		})
		return *cached, nil
	}

	rows, err := s.computeTeamPerformance(ctx, boardID, sprintCount)
	if err != nil {
		return nil, err
	}
	appcache.SetJSONWithMeta(ctx, s.store, key, rows, appcache.TTLDefault)
	return rows, nil
}

func (s *AnalyticsService) computeTeamPerformance(ctx context.Context, boardID, sprintCount int) ([]metrics.SprintPerformance, error) {
	window, issueSets, err := s.sprintWindow(ctx, boardID, sprintCount)
	if err != nil {
		return nil, err
	}
	rows := make([]metrics.SprintPerformance, 0, len(window))
	for _, sp := range window {
		row := appcache.SprintVelocityRow(sp, issueSets[sp.ID])
		rows = append(rows, metrics.SprintPerformance{
			Name:      sp.Name,
			Planned:   row.Commitment,
			Completed: row.Completed,
			Velocity:  row.Velocity,
		})
	}
	return rows, nil
}

// GetIssueTypeDistribution flattens all issues in the window and counts
// them by type, descending.
func (s *AnalyticsService) GetIssueTypeDistribution(ctx context.Context, boardID, sprintCount int) ([]metrics.TypeSlice, error) {
	key := cachekey.IssueTypes(boardID, sprintCount)
	if cached, ok := appcache.GetJSON[[]metrics.TypeSlice](ctx, s.store, key); ok {
		s.orch.ScheduleRefresh(ctx, key, appcache.TTLDefault, func(rctx context.Context) ([]byte, error) {
			slices, err := s.computeTypeDistribution(rctx, boardID, sprintCount)
			if err != nil {
				return nil, err
			}
			return json.Marshal(slices)
		})
		return *cached, nil
	}

	slices, err := s.computeTypeDistribution(ctx, boardID, sprintCount)
	if err != nil {
		return nil, err
	}
	appcache.SetJSONWithMeta(ctx, s.store, key, slices, appcache.TTLDefault)
	return slices, nil
}

func (s *AnalyticsService) computeTypeDistribution(ctx context.Context, boardID, sprintCount int) ([]metrics.TypeSlice, error) {
	_, issueSets, err := s.sprintWindow(ctx, boardID, sprintCount)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, issues := range issueSets {
		for _, issue := range issues {
			counts[issue.TypeName()]++
		}
	}
	slices := make([]metrics.TypeSlice, 0, len(counts))
	for name, count := range counts {
		color, ok := typePalette[name]
		if !ok {
			color = typeColorFallback
		}
		slices = append(slices, metrics.TypeSlice{Name: name, Value: count, Color: color})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Name < slices[j].Name
	})
	return slices, nil
}

// sprintWindow resolves the board's most recent closed sprints and
// batch-fills their issue sets.
func (s *AnalyticsService) sprintWindow(ctx context.Context, boardID, sprintCount int) ([]sprint.Sprint, map[int][]sprint.Issue, error) {
	closed, err := s.closedSprints(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	if sprintCount > 0 && sprintCount < len(closed) {
		closed = closed[:sprintCount]
	}
	if len(closed) == 0 {
		return nil, map[int][]sprint.Issue{}, nil
	}

	byKey := make(map[string]int, len(closed))
	keys := make([]string, 0, len(closed))
	for _, sp := range closed {
		key := cachekey.SprintIssues(sp.ID)
		byKey[key] = sp.ID
		keys = append(keys, key)
	}

	// One batch write covers the whole window, so the newest sprint's
	// resolved TTL governs it. State resolution is cached for an hour and
	// falls back to the default TTL on failure.
	ttl := s.resolver.ResolveSprintTTL(ctx, closed[0].ID)
	filled, err := appcache.FillBatch(ctx, s.filler, keys, ttl, func(fctx context.Context, key string) ([]sprint.Issue, error) {
		return s.tracker.ListSprintIssues(fctx, byKey[key])
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fill sprint issues for board %d: %w", boardID, err)
	}

	issueSets := make(map[int][]sprint.Issue, len(filled))
	for key, issues := range filled {
		issueSets[byKey[key]] = issues
	}
	return closed, issueSets, nil
}

// closedSprints returns the board's closed sprints sorted by start date
// descending. The list is cached independently of per-sprint entries: it
// only changes when a sprint closes.
func (s *AnalyticsService) closedSprints(ctx context.Context, boardID int) ([]sprint.Sprint, error) {
	key := cachekey.BoardSprints(boardID, string(sprint.StateClosed))
	if cached, ok := appcache.GetJSON[[]sprint.Sprint](ctx, s.store, key); ok {
		return *cached, nil
	}

	res, err, _ := s.sf.Do(key, func() (any, error) {
		if cached, ok := appcache.GetJSON[[]sprint.Sprint](ctx, s.store, key); ok {
			return *cached, nil
		}
		sprints, err := s.tracker.ListSprints(ctx, boardID, sprint.StateClosed)
		if err != nil {
			return nil, err
		}
		sort.Slice(sprints, func(i, j int) bool {
			return sprints[i].StartDate.After(sprints[j].StartDate)
		})
		appcache.SetJSONWithMeta(ctx, s.store, key, sprints, appcache.TTLSprintList)
		return sprints, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list closed sprints for board %d: %w", boardID, err)
	}
	sprints, ok := res.([]sprint.Sprint)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return sprints, nil
}

var _ ports.Analytics = (*AnalyticsService)(nil)
