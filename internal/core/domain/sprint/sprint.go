package sprint

import (
	"strings"
	"time"
)

// State is the lifecycle state of a sprint as reported by the tracker.
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
	StateFuture State = "future"
)

// ParseState normalizes a tracker-reported state string. Anything
// unrecognized maps to the empty State, which callers treat as unknown.
func ParseState(s string) State {
	switch State(strings.ToLower(strings.TrimSpace(s))) {
	case StateActive:
		return StateActive
	case StateClosed:
		return StateClosed
	case StateFuture:
		return StateFuture
	}
	return ""
}

// Sprint is a read-only mirror of the tracker's sprint entity.
type Sprint struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	State     State     `json:"state"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	BoardID   int       `json:"boardId"`
}

// Issue is a read-only mirror of the tracker's issue entity. Only the
// fields the aggregations consume are kept.
type Issue struct {
	Key         string  `json:"key"`
	Status      string  `json:"status"`
	StoryPoints float64 `json:"storyPoints"`
	IssueType   string  `json:"issueType"`
	Type        string  `json:"type,omitempty"`
	SprintID    int     `json:"sprintId,omitempty"`
}

// Completed reports whether the issue counts toward completed story points.
func (i Issue) Completed() bool {
	switch strings.ToLower(i.Status) {
	case "done", "closed", "resolved":
		return true
	}
	return false
}

// TypeName returns the issue's type for distribution bucketing, preferring
// IssueType, then Type, then "Unknown".
func (i Issue) TypeName() string {
	if i.IssueType != "" {
		return i.IssueType
	}
	if i.Type != "" {
		return i.Type
	}
	return "Unknown"
}

// ChangeItem is one field mutation inside a webhook changelog.
type ChangeItem struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ChangeLog is the set of field mutations delivered with an issue event.
type ChangeLog struct {
	Items []ChangeItem `json:"items"`
}

// SprintTransitions returns the distinct sprint IDs named by sprint-field
// changes, both sides of each move. Non-numeric values are skipped.
func (c ChangeLog) SprintTransitions() []int {
	seen := make(map[int]struct{})
	var ids []int
	for _, item := range c.Items {
		if !strings.EqualFold(item.Field, "sprint") {
			continue
		}
		for _, raw := range []string{item.From, item.To} {
			id, ok := parseSprintID(raw)
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func parseSprintID(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + int(r-'0')
	}
	return id, true
}
