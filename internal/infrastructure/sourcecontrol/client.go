// Package sourcecontrol implements the upstream source-control client
// against a GitHub-style REST API.
package sourcecontrol

import (
	"context"
	"fmt"
	"time"

	config "github.com/agileview/reporting/go/configs"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const perPage = 100

// Client talks to the source-control host.
type Client struct {
	http   *resty.Client
	logger *logrus.Logger
}

func NewClient(cfg *config.SourceControlConfig, logger *logrus.Logger) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/vnd.github+json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}
	return &Client{http: rc, logger: logger}
}

type commitDTO struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message   string `json:"message"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

type pullRequestDTO struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	MergedAt  *time.Time `json:"merged_at"`
}

func (c *Client) ListCommits(ctx context.Context, owner, repo string, since, until time.Time) ([]ports.Commit, error) {
	var out []ports.Commit
	page := 1
	for {
		var dtos []commitDTO
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&dtos).
			SetQueryParams(map[string]string{
				"since":    since.UTC().Format(time.RFC3339),
				"until":    until.UTC().Format(time.RFC3339),
				"per_page": fmt.Sprint(perPage),
				"page":     fmt.Sprint(page),
			}).
			Get(fmt.Sprintf("/repos/%s/%s/commits", owner, repo))
		if err != nil {
			return nil, fmt.Errorf("list commits for %s/%s: %w", owner, repo, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("list commits for %s/%s: host returned %s", owner, repo, resp.Status())
		}
		for _, dto := range dtos {
			out = append(out, ports.Commit{
				SHA:           dto.SHA,
				Message:       dto.Commit.Message,
				CommittedDate: dto.Commit.Committer.Date,
			})
		}
		if len(dtos) < perPage {
			return out, nil
		}
		page++
	}
}

func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string) ([]ports.PullRequest, error) {
	if state == "" {
		state = "all"
	}
	var out []ports.PullRequest
	page := 1
	for {
		var dtos []pullRequestDTO
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&dtos).
			SetQueryParams(map[string]string{
				"state":    state,
				"per_page": fmt.Sprint(perPage),
				"page":     fmt.Sprint(page),
			}).
			Get(fmt.Sprintf("/repos/%s/%s/pulls", owner, repo))
		if err != nil {
			return nil, fmt.Errorf("list pull requests for %s/%s: %w", owner, repo, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("list pull requests for %s/%s: host returned %s", owner, repo, resp.Status())
		}
		for _, dto := range dtos {
			out = append(out, ports.PullRequest{
				Number:    dto.Number,
				Title:     dto.Title,
				State:     dto.State,
				CreatedAt: dto.CreatedAt,
				ClosedAt:  dto.ClosedAt,
				MergedAt:  dto.MergedAt,
			})
		}
		if len(dtos) < perPage {
			return out, nil
		}
		page++
	}
}

var _ ports.SourceControl = (*Client)(nil)
