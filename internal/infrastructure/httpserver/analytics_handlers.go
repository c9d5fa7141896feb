package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/agileview/reporting/go/internal/application/services"
	"github.com/labstack/echo/v4"
)

const defaultSprintWindow = 6

func (s *Server) getVelocity(c echo.Context) error {
	boardID, err := strconv.Atoi(c.Param("boardID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board id")
	}
	report, err := s.analytics.GetVelocity(c.Request().Context(), boardID, sprintCountParam(c))
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("velocity computation failed")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to compute velocity")
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) getTeamPerformance(c echo.Context) error {
	boardID, err := strconv.Atoi(c.Param("boardID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board id")
	}
	rows, err := s.analytics.GetTeamPerformance(c.Request().Context(), boardID, sprintCountParam(c))
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("team performance computation failed")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to compute team performance")
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) getIssueTypeDistribution(c echo.Context) error {
	boardID, err := strconv.Atoi(c.Param("boardID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board id")
	}
	slices, err := s.analytics.GetIssueTypeDistribution(c.Request().Context(), boardID, sprintCountParam(c))
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("issue type distribution computation failed")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to compute issue type distribution")
	}
	return c.JSON(http.StatusOK, slices)
}

func (s *Server) getCommitTrends(c echo.Context) error {
	owner := c.Param("owner")
	repo := c.Param("repo")
	trends, err := s.analytics.GetCommitTrends(c.Request().Context(), owner, repo, c.QueryParam("period"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidPeriod) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid period")
		}
		if s.logger != nil {
			s.logger.WithError(err).Error("commit trends computation failed")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to compute commit trends")
	}
	return c.JSON(http.StatusOK, trends)
}

func (s *Server) getSnapshots(c echo.Context) error {
	boardID, err := strconv.Atoi(c.Param("boardID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board id")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	snaps, err := s.snapshots.History(c.Request().Context(), boardID, limit)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("snapshot history lookup failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load snapshot history")
	}
	return c.JSON(http.StatusOK, snaps)
}

func sprintCountParam(c echo.Context) int {
	if n, err := strconv.Atoi(c.QueryParam("sprints")); err == nil && n > 0 {
		return n
	}
	return defaultSprintWindow
}
