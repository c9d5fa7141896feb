package ports

import (
	"context"
	"time"
)

// Commit is a read-only mirror of an upstream commit.
type Commit struct {
	SHA           string    `json:"sha"`
	Message       string    `json:"message"`
	CommittedDate time.Time `json:"committedDate"`
}

// PullRequest is a read-only mirror of an upstream pull request. Date
// fields are pointers because upstream omits the ones that have not
// happened yet.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"createdAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	MergedAt  *time.Time `json:"mergedAt,omitempty"`
}

// ActivityDate picks the month-bucketing date for a pull request:
// merge date preferred, then close date, then create date.
func (p PullRequest) ActivityDate() time.Time {
	if p.MergedAt != nil {
		return *p.MergedAt
	}
	if p.ClosedAt != nil {
		return *p.ClosedAt
	}
	return p.CreatedAt
}

// SourceControl is the upstream source-control host API.
type SourceControl interface {
	ListCommits(ctx context.Context, owner, repo string, since, until time.Time) ([]Commit, error)
	ListPullRequests(ctx context.Context, owner, repo, state string) ([]PullRequest, error)
}
