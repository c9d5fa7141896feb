package services

import (
	"context"
	"fmt"

	"github.com/agileview/reporting/go/internal/core/domain/metrics"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const defaultSnapshotLimit = 20

// SnapshotService exposes persisted metric history for dashboards.
type SnapshotService struct {
	repo   ports.SnapshotRepository
	logger *logrus.Logger
}

func NewSnapshotService(repo ports.SnapshotRepository, logger *logrus.Logger) *SnapshotService {
	return &SnapshotService{repo: repo, logger: logger}
}

// History returns the board's most recent metric snapshots, newest first.
func (s *SnapshotService) History(ctx context.Context, boardID, limit int) ([]*metrics.Snapshot, error) {
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	snaps, err := s.repo.ListByBoard(ctx, boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for board %d: %w", boardID, err)
	}
	return snaps, nil
}
