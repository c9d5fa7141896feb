package httpserver

import (
	"net/http"
	"strconv"

	"github.com/agileview/reporting/go/internal/core/domain/sprint"
	"github.com/labstack/echo/v4"
)

// issueEvent is the webhook payload delivered on upstream issue mutation.
type issueEvent struct {
	Issue     sprint.Issue     `json:"issue"`
	ChangeLog sprint.ChangeLog `json:"changeLog"`
}

func (s *Server) handleIssueEvent(c echo.Context) error {
	var event issueEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}
	// Invalidation is best-effort; the webhook is acknowledged either way
	// so the upstream does not retry a delivery we cannot improve on.
	if err := s.orchestrator.InvalidateIssue(c.Request().Context(), event.Issue, event.ChangeLog); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("issue event invalidation incomplete")
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) warmSprintCache(c echo.Context) error {
	sprintID, err := strconv.Atoi(c.Param("sprintID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sprint id")
	}
	owner := c.QueryParam("owner")
	repo := c.QueryParam("repo")
	if err := s.orchestrator.WarmSprint(c.Request().Context(), sprintID, owner, repo); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to warm sprint cache")
	}
	return c.JSON(http.StatusOK, map[string]any{"sprintId": sprintID, "warmed": true})
}

func (s *Server) invalidateSprintCache(c echo.Context) error {
	sprintID, err := strconv.Atoi(c.Param("sprintID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sprint id")
	}
	if err := s.orchestrator.InvalidateSprint(c.Request().Context(), sprintID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to invalidate sprint cache")
	}
	return c.NoContent(http.StatusNoContent)
}
