package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	appcache "github.com/agileview/reporting/go/internal/application/cache"
	"github.com/agileview/reporting/go/internal/core/cachekey"
	"github.com/agileview/reporting/go/internal/core/domain/sprint"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/agileview/reporting/go/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vcsMock struct {
	listCommitsFn func(ctx context.Context, owner, repo string, since, until time.Time) ([]ports.Commit, error)
	listPRsFn     func(ctx context.Context, owner, repo, state string) ([]ports.PullRequest, error)
}

func (m *vcsMock) ListCommits(ctx context.Context, owner, repo string, since, until time.Time) ([]ports.Commit, error) {
	if m.listCommitsFn != nil {
		return m.listCommitsFn(ctx, owner, repo, since, until)
	}
	return nil, nil
}
func (m *vcsMock) ListPullRequests(ctx context.Context, owner, repo, state string) ([]ports.PullRequest, error) {
	if m.listPRsFn != nil {
		return m.listPRsFn(ctx, owner, repo, state)
	}
	return nil, nil
}

func closedSprintTracker(issues []sprint.Issue) *trackerMock {
	return &trackerMock{
		getSprintFn: func(ctx context.Context, sprintID int) (*sprint.Sprint, error) {
			return &sprint.Sprint{
				ID:        sprintID,
				Name:      "Sprint 42",
				State:     sprint.StateClosed,
				StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
				BoardID:   6306,
			}, nil
		},
		listSprintIssuesFn: func(ctx context.Context, sprintID int) ([]sprint.Issue, error) {
			return issues, nil
		},
	}
}

func TestWarmSprint_PopulatesAllEntries(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	issues := []sprint.Issue{
		{Key: "AV-1", Status: "Done", StoryPoints: 5},
		{Key: "AV-2", Status: "In Progress", StoryPoints: 3},
	}
	orch := appcache.NewOrchestrator(store, closedSprintTracker(issues), &vcsMock{}, nil, appcache.OrchestratorConfig{})

	require.NoError(t, orch.WarmSprint(context.Background(), 42, "", ""))

	ctx := context.Background()
	for _, key := range []string{
		cachekey.SprintIssues(42),
		cachekey.SprintState(42),
		cachekey.SprintMetric(42, "velocity"),
		cachekey.Comprehensive(42, "report"),
		cachekey.RefreshMeta(cachekey.SprintIssues(42)),
	} {
		_, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to be warmed", key)
	}

	b, _, _ := store.Get(ctx, cachekey.SprintMetric(42, "velocity"))
	var row struct {
		Commitment float64 `json:"commitment"`
		Completed  float64 `json:"completed"`
		Velocity   float64 `json:"velocity"`
	}
	require.NoError(t, json.Unmarshal(b, &row))
	assert.Equal(t, 8.0, row.Commitment)
	assert.Equal(t, 5.0, row.Completed)
	assert.Equal(t, 5.0, row.Velocity)
}

func TestWarmSprint_Idempotent(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	issues := []sprint.Issue{{Key: "AV-1", Status: "Done", StoryPoints: 5}}
	orch := appcache.NewOrchestrator(store, closedSprintTracker(issues), &vcsMock{}, nil, appcache.OrchestratorConfig{})

	ctx := context.Background()
	require.NoError(t, orch.WarmSprint(ctx, 42, "", ""))
	first, _, _ := store.Get(ctx, cachekey.SprintIssues(42))

	require.NoError(t, orch.WarmSprint(ctx, 42, "", ""))
	second, _, _ := store.Get(ctx, cachekey.SprintIssues(42))

	assert.Equal(t, first, second, "warming twice with unchanged upstream must produce identical content")
}

func TestWarmSprint_UpstreamFailurePropagates(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	tracker := &trackerMock{getSprintFn: func(ctx context.Context, sprintID int) (*sprint.Sprint, error) {
		return nil, errors.New("tracker down")
	}}
	orch := appcache.NewOrchestrator(store, tracker, &vcsMock{}, nil, appcache.OrchestratorConfig{})

	assert.Error(t, orch.WarmSprint(context.Background(), 42, "", ""))
}

func TestInvalidateSprint_RemovesEveryNamespace(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	issues := []sprint.Issue{{Key: "AV-1", Status: "Done", StoryPoints: 5}}
	orch := appcache.NewOrchestrator(store, closedSprintTracker(issues), &vcsMock{}, nil, appcache.OrchestratorConfig{})

	ctx := context.Background()
	require.NoError(t, orch.WarmSprint(ctx, 42, "", ""))
	// An entry another sprint owns must survive the cascade.
	require.NoError(t, store.Set(ctx, cachekey.SprintIssues(43), []byte("other"), time.Minute))

	require.NoError(t, orch.InvalidateSprint(ctx, 42))

	for _, key := range []string{
		cachekey.SprintIssues(42),
		cachekey.SprintState(42),
		cachekey.SprintMetric(42, "velocity"),
		cachekey.Comprehensive(42, "report"),
		cachekey.RefreshMeta(cachekey.SprintIssues(42)),
	} {
		_, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "expected %s to be a guaranteed miss after invalidation", key)
	}

	_, ok, _ := store.Get(ctx, cachekey.SprintIssues(43))
	assert.True(t, ok)
}

func TestInvalidateIssue_CascadesToBothSidesOfSprintMove(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	orch := appcache.NewOrchestrator(store, &trackerMock{}, &vcsMock{}, nil, appcache.OrchestratorConfig{})

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, cachekey.SprintIssues(10), []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, cachekey.SprintIssues(11), []byte("b"), time.Minute))

	issue := sprint.Issue{Key: "AV-7", SprintID: 11}
	changeLog := sprint.ChangeLog{Items: []sprint.ChangeItem{{Field: "Sprint", From: "10", To: "11"}}}
	require.NoError(t, orch.InvalidateIssue(ctx, issue, changeLog))

	_, ok, _ := store.Get(ctx, cachekey.SprintIssues(10))
	assert.False(t, ok, "source sprint must be invalidated")
	_, ok, _ = store.Get(ctx, cachekey.SprintIssues(11))
	assert.False(t, ok, "destination sprint must be invalidated")
}

func TestScheduleRefresh_PastHalfLifeOverwritesEntry(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	orch := appcache.NewOrchestrator(store, &trackerMock{}, &vcsMock{}, nil, appcache.OrchestratorConfig{})

	ctx := context.Background()
	key := "analytics:velocity:6306:10"
	require.NoError(t, store.Set(ctx, key, []byte("stale"), time.Minute))
	// Metadata dated past the half-life of a one-minute TTL.
	meta, _ := json.Marshal(map[string]time.Time{"createdAt": time.Now().Add(-45 * time.Second)})
	require.NoError(t, store.Set(ctx, cachekey.RefreshMeta(key), meta, time.Minute))

	orch.ScheduleRefresh(ctx, key, time.Minute, func(rctx context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})

	require.Eventually(t, func() bool {
		b, ok, _ := store.Get(ctx, key)
		return ok && string(b) == "fresh"
	}, time.Second, 10*time.Millisecond)
}

func TestScheduleRefresh_BeforeHalfLifeDoesNothing(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	orch := appcache.NewOrchestrator(store, &trackerMock{}, &vcsMock{}, nil, appcache.OrchestratorConfig{})

	ctx := context.Background()
	key := "analytics:velocity:6306:10"
	require.NoError(t, store.Set(ctx, key, []byte("young"), time.Minute))
	meta, _ := json.Marshal(map[string]time.Time{"createdAt": time.Now().Add(-5 * time.Second)})
	require.NoError(t, store.Set(ctx, cachekey.RefreshMeta(key), meta, time.Minute))

	refreshed := make(chan struct{}, 1)
	orch.ScheduleRefresh(ctx, key, time.Minute, func(rctx context.Context) ([]byte, error) {
		refreshed <- struct{}{}
		return []byte("fresh"), nil
	})

	select {
	case <-refreshed:
		t.Fatal("refresh must not run before the half-life")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduleRefresh_MissingMetadataDoesNothing(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	orch := appcache.NewOrchestrator(store, &trackerMock{}, &vcsMock{}, nil, appcache.OrchestratorConfig{})

	refreshed := make(chan struct{}, 1)
	orch.ScheduleRefresh(context.Background(), "analytics:velocity:1:1", time.Minute, func(rctx context.Context) ([]byte, error) {
		refreshed <- struct{}{}
		return nil, nil
	})

	select {
	case <-refreshed:
		t.Fatal("refresh must not run without metadata")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduleRefresh_FailureLeavesStaleEntryServiceable(t *testing.T) {
	store := memory.NewMemoryStore()
	defer store.Close()
	orch := appcache.NewOrchestrator(store, &trackerMock{}, &vcsMock{}, nil, appcache.OrchestratorConfig{})

	ctx := context.Background()
	key := "analytics:velocity:6306:10"
	require.NoError(t, store.Set(ctx, key, []byte("stale"), time.Minute))
	meta, _ := json.Marshal(map[string]time.Time{"createdAt": time.Now().Add(-45 * time.Second)})
	require.NoError(t, store.Set(ctx, cachekey.RefreshMeta(key), meta, time.Minute))

	done := make(chan struct{})
	orch.ScheduleRefresh(ctx, key, time.Minute, func(rctx context.Context) ([]byte, error) {
		defer close(done)
		return nil, errors.New("upstream down")
	})
	<-done
	// Give the goroutine time to (not) overwrite after the refresh fn returns.
	time.Sleep(20 * time.Millisecond)

	b, ok, _ := store.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "stale", string(b))
}
