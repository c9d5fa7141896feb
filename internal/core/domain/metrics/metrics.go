package metrics

import (
	"time"

	"github.com/google/uuid"
)

// Trend classifies the direction of a velocity series.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// SprintVelocity is one sprint's row in a velocity report, newest first.
type SprintVelocity struct {
	SprintID   int       `json:"sprintId"`
	Name       string    `json:"name"`
	StartDate  time.Time `json:"startDate"`
	Commitment float64   `json:"commitment"`
	Completed  float64   `json:"completed"`
	Velocity   float64   `json:"velocity"`
}

// VelocityReport is the derived velocity metric for a board window.
type VelocityReport struct {
	BoardID     int              `json:"boardId"`
	Sprints     []SprintVelocity `json:"sprints"`
	AverageVelo float64          `json:"averageVelocity"`
	Trend       Trend            `json:"trend"`
}

// SprintPerformance is one sprint's row in a team-performance report.
type SprintPerformance struct {
	Name      string  `json:"name"`
	Planned   float64 `json:"planned"`
	Completed float64 `json:"completed"`
	Velocity  float64 `json:"velocity"`
}

// TypeSlice is one issue-type bucket in a distribution, ordered by count.
type TypeSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// MonthActivity is one calendar month's bucket in a commit-trend series.
type MonthActivity struct {
	Month        string `json:"month"` // YYYY-MM
	Commits      int    `json:"commits"`
	PullRequests int    `json:"pullRequests"`
}

// CommitTrends is the derived monthly activity metric for a repository.
type CommitTrends struct {
	Owner  string          `json:"owner"`
	Repo   string          `json:"repo"`
	Months []MonthActivity `json:"months"`
}

// Snapshot is a persisted record of a computed board metric, kept for
// dashboard history after the cache entry itself has expired.
type Snapshot struct {
	ID          uuid.UUID `json:"id" db:"id"`
	BoardID     int       `json:"boardId" db:"board_id"`
	SprintID    int       `json:"sprintId" db:"sprint_id"`
	Metric      string    `json:"metric" db:"metric"`
	Payload     []byte    `json:"payload" db:"payload"`
	GeneratedAt time.Time `json:"generatedAt" db:"generated_at"`
}
