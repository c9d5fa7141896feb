package ports

import (
	"context"

	"github.com/agileview/reporting/go/internal/core/domain/metrics"
	"github.com/agileview/reporting/go/internal/core/domain/sprint"
)

// Analytics exposes the derived-metric queries consumed by the HTTP layer
// and the report generator. All results are plain data structures.
type Analytics interface {
	GetVelocity(ctx context.Context, boardID, sprintCount int) (*metrics.VelocityReport, error)
	GetTeamPerformance(ctx context.Context, boardID, sprintCount int) ([]metrics.SprintPerformance, error)
	GetIssueTypeDistribution(ctx context.Context, boardID, sprintCount int) ([]metrics.TypeSlice, error)
	GetCommitTrends(ctx context.Context, owner, repo, period string) (*metrics.CommitTrends, error)
}

// Orchestrator owns cache warming, background refresh and invalidation.
// It is the only component allowed to delete or bulk-populate cache state
// outside normal read paths.
type Orchestrator interface {
	WarmSprint(ctx context.Context, sprintID int, owner, repo string) error
	InvalidateSprint(ctx context.Context, sprintID int) error
	InvalidateIssue(ctx context.Context, issue sprint.Issue, changeLog sprint.ChangeLog) error
}
