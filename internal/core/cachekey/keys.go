// Package cachekey is the single legal construction path for cache keys.
// Prefix-based cascade invalidation relies on every key in a namespace
// coming through these builders; ad hoc concatenation elsewhere breaks it.
package cachekey

import (
	"fmt"
	"strings"
)

// Namespace is the leading segment of a cache key.
type Namespace string

const (
	NamespaceSprint        Namespace = "sprint"
	NamespaceBoard         Namespace = "board"
	NamespaceAnalytics     Namespace = "analytics"
	NamespaceComprehensive Namespace = "comprehensive"
	NamespaceMeta          Namespace = "meta"
	NamespaceVCS           Namespace = "vcs"
)

func join(ns Namespace, segments ...string) string {
	return string(ns) + ":" + strings.Join(segments, ":")
}

// SprintIssues keys the full issue set of one sprint.
func SprintIssues(sprintID int) string {
	return join(NamespaceSprint, fmt.Sprint(sprintID), "issues")
}

// SprintState keys a sprint's cached lifecycle state.
func SprintState(sprintID int) string {
	return join(NamespaceSprint, fmt.Sprint(sprintID), "state")
}

// SprintMetric keys a per-sprint derived metric.
func SprintMetric(sprintID int, metric string) string {
	return join(NamespaceSprint, fmt.Sprint(sprintID), "metrics", metric)
}

// Comprehensive keys the full warmed report bundle for a sprint.
func Comprehensive(sprintID int, section string) string {
	return join(NamespaceComprehensive, fmt.Sprint(sprintID), section)
}

// BoardSprints keys a board's sprint list filtered by state.
func BoardSprints(boardID int, state string) string {
	if state == "" {
		state = "all"
	}
	return join(NamespaceBoard, fmt.Sprint(boardID), "sprints", state)
}

// Velocity keys a board's velocity report over a window of n sprints.
func Velocity(boardID, n int) string {
	return join(NamespaceAnalytics, "velocity", fmt.Sprint(boardID), fmt.Sprint(n))
}

// TeamPerformance keys a board's team-performance series.
func TeamPerformance(boardID, n int) string {
	return join(NamespaceAnalytics, "team-performance", fmt.Sprint(boardID), fmt.Sprint(n))
}

// IssueTypes keys a board's issue-type distribution.
func IssueTypes(boardID, n int) string {
	return join(NamespaceAnalytics, "issue-types", fmt.Sprint(boardID), fmt.Sprint(n))
}

// CommitTrends keys a repository's monthly activity series.
func CommitTrends(owner, repo, period string) string {
	return join(NamespaceAnalytics, "commit-trends", owner, repo, period)
}

// RepoCommits keys a repository's raw commit list for a window.
func RepoCommits(owner, repo, since, until string) string {
	return join(NamespaceVCS, owner, repo, "commits", since, until)
}

// RepoPullRequests keys a repository's raw pull-request list.
func RepoPullRequests(owner, repo, state string) string {
	return join(NamespaceVCS, owner, repo, "prs", state)
}

// RefreshMeta keys the half-life refresh side-record of another key.
func RefreshMeta(key string) string {
	return join(NamespaceMeta, "refresh", key)
}

// SprintInvalidation returns the glob patterns that enumerate every cache
// entry structurally dependent on a sprint, plus its direct state key.
// Deleting all of them is the cascade for a sprint mutation.
func SprintInvalidation(sprintID int) []string {
	id := fmt.Sprint(sprintID)
	return []string{
		join(NamespaceSprint, id, "issues") + "*",
		join(NamespaceSprint, id, "metrics") + ":*",
		join(NamespaceComprehensive, id) + ":*",
		join(NamespaceSprint, id, "state"),
	}
}
