package ports

import (
	"context"

	"github.com/agileview/reporting/go/internal/core/domain/sprint"
)

// IssueTracker is the upstream agile-board API the service mirrors.
type IssueTracker interface {
	// ListSprints returns the board's sprints, optionally filtered by state
	// (empty state means all).
	ListSprints(ctx context.Context, boardID int, state sprint.State) ([]sprint.Sprint, error)
	// ListSprintIssues returns every issue currently associated with the sprint.
	ListSprintIssues(ctx context.Context, sprintID int) ([]sprint.Issue, error)
	// GetSprint returns a single sprint by ID.
	GetSprint(ctx context.Context, sprintID int) (*sprint.Sprint, error)
}
