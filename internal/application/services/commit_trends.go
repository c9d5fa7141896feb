package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	appcache "github.com/agileview/reporting/go/internal/application/cache"
	"github.com/agileview/reporting/go/internal/core/cachekey"
	"github.com/agileview/reporting/go/internal/core/domain/metrics"
	"github.com/agileview/reporting/go/internal/core/ports"
)

const monthLayout = "2006-01"

// ErrInvalidPeriod marks a malformed period argument so handlers can
// distinguish caller mistakes from upstream failures.
var ErrInvalidPeriod = errors.New("invalid reporting period")

// GetCommitTrends buckets the repository's commits and pull requests by
// calendar month over the requested period, zero-filling empty months.
func (s *AnalyticsService) GetCommitTrends(ctx context.Context, owner, repo, period string) (*metrics.CommitTrends, error) {
	months, err := parsePeriod(period)
	if err != nil {
		return nil, err
	}
	key := cachekey.CommitTrends(owner, repo, fmt.Sprintf("%dm", months))
	if cached, ok := appcache.GetJSON[metrics.CommitTrends](ctx, s.store, key); ok {
		s.orch.ScheduleRefresh(ctx, key, appcache.TTLSprintList, func(rctx context.Context) ([]byte, error) {
			trends, err := s.computeCommitTrends(rctx, owner, repo, months)
			if err != nil {
				return nil, err
			}
			return json.Marshal(trends)
		})
		return cached, nil
	}

	trends, err := s.computeCommitTrends(ctx, owner, repo, months)
	if err != nil {
		return nil, err
	}
	appcache.SetJSONWithMeta(ctx, s.store, key, trends, appcache.TTLSprintList)
	return trends, nil
}

func (s *AnalyticsService) computeCommitTrends(ctx context.Context, owner, repo string, months int) (*metrics.CommitTrends, error) {
	now := time.Now().UTC()
	until := now
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	commitsKey := cachekey.RepoCommits(owner, repo, since.Format(monthLayout), until.Format(monthLayout))
	filledCommits, err := appcache.FillBatch(ctx, s.filler, []string{commitsKey}, appcache.TTLSprintList, func(fctx context.Context, _ string) ([]ports.Commit, error) {
		return s.vcs.ListCommits(fctx, owner, repo, since, until)
	})
	if err != nil {
		return nil, fmt.Errorf("fill commits for %s/%s: %w", owner, repo, err)
	}

	prsKey := cachekey.RepoPullRequests(owner, repo, "all")
	filledPRs, err := appcache.FillBatch(ctx, s.filler, []string{prsKey}, appcache.TTLSprintList, func(fctx context.Context, _ string) ([]ports.PullRequest, error) {
		return s.vcs.ListPullRequests(fctx, owner, repo, "all")
	})
	if err != nil {
		return nil, fmt.Errorf("fill pull requests for %s/%s: %w", owner, repo, err)
	}

	return BucketMonthlyActivity(owner, repo, since, until, filledCommits[commitsKey], filledPRs[prsKey]), nil
}

// BucketMonthlyActivity counts commits and pull requests per calendar
// month over [since, until], emitting every month in the range even when
// it has no activity. PR dates prefer merge, then close, then create;
// commit dates use the committer date.
func BucketMonthlyActivity(owner, repo string, since, until time.Time, commits []ports.Commit, prs []ports.PullRequest) *metrics.CommitTrends {
	trends := &metrics.CommitTrends{Owner: owner, Repo: repo}
	index := make(map[string]int)

	cursor := time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(until.Year(), until.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		month := cursor.Format(monthLayout)
		index[month] = len(trends.Months)
		trends.Months = append(trends.Months, metrics.MonthActivity{Month: month})
		cursor = cursor.AddDate(0, 1, 0)
	}

	for _, c := range commits {
		if i, ok := index[c.CommittedDate.UTC().Format(monthLayout)]; ok {
			trends.Months[i].Commits++
		}
	}
	for _, pr := range prs {
		if i, ok := index[pr.ActivityDate().UTC().Format(monthLayout)]; ok {
			trends.Months[i].PullRequests++
		}
	}
	return trends
}

// parsePeriod accepts "3m", "6m", "12m" or "1y" style periods and returns
// the month count. Empty defaults to six months.
func parsePeriod(period string) (int, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		return 6, nil
	}
	unit := period[len(period)-1]
	n, err := strconv.Atoi(period[:len(period)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	switch unit {
	case 'm':
		return n, nil
	case 'y':
		return n * 12, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
}
