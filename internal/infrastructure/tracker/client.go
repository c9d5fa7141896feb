// Package tracker implements the upstream issue-tracker client against a
// Jira-style agile REST API.
package tracker

import (
	"context"
	"fmt"
	"time"

	config "github.com/agileview/reporting/go/configs"
	"github.com/agileview/reporting/go/internal/core/domain/sprint"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const pageSize = 50

// Client talks to the tracker's agile API.
type Client struct {
	http   *resty.Client
	logger *logrus.Logger
}

func NewClient(cfg *config.TrackerConfig, logger *logrus.Logger) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Email != "" && cfg.APIToken != "" {
		rc.SetBasicAuth(cfg.Email, cfg.APIToken)
	}
	return &Client{http: rc, logger: logger}
}

type sprintDTO struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	State         string `json:"state"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	OriginBoardID int    `json:"originBoardId"`
}

type sprintPage struct {
	Values []sprintDTO `json:"values"`
	IsLast bool        `json:"isLast"`
}

type issueDTO struct {
	Key    string `json:"key"`
	Fields struct {
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		StoryPoints float64 `json:"customfield_10016"`
		Sprint      *struct {
			ID int `json:"id"`
		} `json:"sprint"`
	} `json:"fields"`
}

type issuePage struct {
	Issues     []issueDTO `json:"issues"`
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
}

func (c *Client) ListSprints(ctx context.Context, boardID int, state sprint.State) ([]sprint.Sprint, error) {
	var out []sprint.Sprint
	startAt := 0
	for {
		var page sprintPage
		req := c.http.R().
			SetContext(ctx).
			SetResult(&page).
			SetQueryParam("startAt", fmt.Sprint(startAt)).
			SetQueryParam("maxResults", fmt.Sprint(pageSize))
		if state != "" {
			req.SetQueryParam("state", string(state))
		}
		resp, err := req.Get(fmt.Sprintf("/rest/agile/1.0/board/%d/sprint", boardID))
		if err != nil {
			return nil, fmt.Errorf("list sprints for board %d: %w", boardID, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("list sprints for board %d: tracker returned %s", boardID, resp.Status())
		}
		for _, dto := range page.Values {
			out = append(out, toSprint(dto))
		}
		if page.IsLast || len(page.Values) == 0 {
			return out, nil
		}
		startAt += len(page.Values)
	}
}

func (c *Client) ListSprintIssues(ctx context.Context, sprintID int) ([]sprint.Issue, error) {
	var out []sprint.Issue
	startAt := 0
	for {
		var page issuePage
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&page).
			SetQueryParam("startAt", fmt.Sprint(startAt)).
			SetQueryParam("maxResults", fmt.Sprint(pageSize)).
			SetQueryParam("fields", "status,issuetype,customfield_10016,sprint").
			Get(fmt.Sprintf("/rest/agile/1.0/sprint/%d/issue", sprintID))
		if err != nil {
			return nil, fmt.Errorf("list issues for sprint %d: %w", sprintID, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("list issues for sprint %d: tracker returned %s", sprintID, resp.Status())
		}
		for _, dto := range page.Issues {
			issue := sprint.Issue{
				Key:         dto.Key,
				Status:      dto.Fields.Status.Name,
				StoryPoints: dto.Fields.StoryPoints,
				IssueType:   dto.Fields.IssueType.Name,
			}
			if dto.Fields.Sprint != nil {
				issue.SprintID = dto.Fields.Sprint.ID
			}
			out = append(out, issue)
		}
		startAt += len(page.Issues)
		if startAt >= page.Total || len(page.Issues) == 0 {
			return out, nil
		}
	}
}

func (c *Client) GetSprint(ctx context.Context, sprintID int) (*sprint.Sprint, error) {
	var dto sprintDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&dto).
		Get(fmt.Sprintf("/rest/agile/1.0/sprint/%d", sprintID))
	if err != nil {
		return nil, fmt.Errorf("get sprint %d: %w", sprintID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get sprint %d: tracker returned %s", sprintID, resp.Status())
	}
	s := toSprint(dto)
	return &s, nil
}

func toSprint(dto sprintDTO) sprint.Sprint {
	return sprint.Sprint{
		ID:        dto.ID,
		Name:      dto.Name,
		State:     sprint.ParseState(dto.State),
		StartDate: parseDate(dto.StartDate),
		EndDate:   parseDate(dto.EndDate),
		BoardID:   dto.OriginBoardID,
	}
}

// parseDate tolerates the tracker's two timestamp flavors; a zero time is
// returned for anything unparsable rather than failing the whole list.
func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z0700"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

var _ ports.IssueTracker = (*Client)(nil)
