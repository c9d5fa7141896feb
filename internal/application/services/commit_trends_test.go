package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agileview/reporting/go/internal/application/services"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketMonthlyActivity_ZeroFillsEmptyMonths(t *testing.T) {
	since := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	commits := []ports.Commit{
		{SHA: "abc", CommittedDate: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)},
	}

	trends := services.BucketMonthlyActivity("agileview", "reporting", since, until, commits, nil)

	require.Len(t, trends.Months, 3)
	assert.Equal(t, "2026-01", trends.Months[0].Month)
	assert.Equal(t, 0, trends.Months[0].Commits)
	assert.Equal(t, "2026-02", trends.Months[1].Month)
	assert.Equal(t, 0, trends.Months[1].Commits)
	assert.Equal(t, "2026-03", trends.Months[2].Month)
	assert.Equal(t, 1, trends.Months[2].Commits)
}

func TestBucketMonthlyActivity_PullRequestDatePreference(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	prs := []ports.PullRequest{
		// Merged wins over closed and created.
		{Number: 1, CreatedAt: jan, ClosedAt: &feb, MergedAt: &mar},
		// No merge date: closed wins over created.
		{Number: 2, CreatedAt: jan, ClosedAt: &feb},
		// Open PR counts by creation month.
		{Number: 3, CreatedAt: jan},
	}

	trends := services.BucketMonthlyActivity("agileview", "reporting", since, until, nil, prs)

	require.Len(t, trends.Months, 3)
	assert.Equal(t, 1, trends.Months[0].PullRequests, "January: the open PR")
	assert.Equal(t, 1, trends.Months[1].PullRequests, "February: the closed-unmerged PR")
	assert.Equal(t, 1, trends.Months[2].PullRequests, "March: the merged PR")
}

func TestBucketMonthlyActivity_IgnoresActivityOutsideRange(t *testing.T) {
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	commits := []ports.Commit{
		{SHA: "old", CommittedDate: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)},
		{SHA: "in", CommittedDate: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
	}

	trends := services.BucketMonthlyActivity("agileview", "reporting", since, until, commits, nil)

	require.Len(t, trends.Months, 1)
	assert.Equal(t, 1, trends.Months[0].Commits)
}

func TestGetCommitTrends_DefaultPeriodCoversSixMonths(t *testing.T) {
	vcs := &vcsMock{}
	svc, _ := newService(t, &trackerMock{}, vcs)

	trends, err := svc.GetCommitTrends(context.Background(), "agileview", "reporting", "")
	require.NoError(t, err)
	assert.Len(t, trends.Months, 6)
	assert.Equal(t, "agileview", trends.Owner)
	assert.Equal(t, "reporting", trends.Repo)
}

func TestGetCommitTrends_YearPeriod(t *testing.T) {
	svc, _ := newService(t, &trackerMock{}, &vcsMock{})

	trends, err := svc.GetCommitTrends(context.Background(), "agileview", "reporting", "1y")
	require.NoError(t, err)
	assert.Len(t, trends.Months, 12)
}

func TestGetCommitTrends_InvalidPeriodRejected(t *testing.T) {
	svc, _ := newService(t, &trackerMock{}, &vcsMock{})

	for _, period := range []string{"abc", "0m", "-3m", "6w"} {
		_, err := svc.GetCommitTrends(context.Background(), "agileview", "reporting", period)
		assert.ErrorIs(t, err, services.ErrInvalidPeriod, "period %q must be rejected", period)
	}
}

func TestGetCommitTrends_SecondCallServedFromCache(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	vcs := &vcsMock{
		listCommitsFn: func(ctx context.Context, owner, repo string, since, until time.Time) ([]ports.Commit, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil, nil
		},
	}
	svc, _ := newService(t, &trackerMock{}, vcs)

	ctx := context.Background()
	_, err := svc.GetCommitTrends(ctx, "agileview", "reporting", "3m")
	require.NoError(t, err)
	_, err = svc.GetCommitTrends(ctx, "agileview", "reporting", "3m")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "second call must not hit source control")
}

func TestGetCommitTrends_UpstreamFailurePropagates(t *testing.T) {
	vcs := &vcsMock{
		listCommitsFn: func(ctx context.Context, owner, repo string, since, until time.Time) ([]ports.Commit, error) {
			return nil, errors.New("api rate limited")
		},
	}
	svc, _ := newService(t, &trackerMock{}, vcs)

	_, err := svc.GetCommitTrends(context.Background(), "agileview", "reporting", "3m")
	assert.Error(t, err)
}
