package repositories

import (
	"context"
	"fmt"

	"github.com/agileview/reporting/go/internal/core/domain/metrics"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/agileview/reporting/go/internal/infrastructure/db"
	"github.com/sirupsen/logrus"
)

// SnapshotRepository persists metric snapshots in Postgres.
type SnapshotRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewSnapshotRepository(database *db.Database, logger *logrus.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: database, logger: logger}
}

func (r *SnapshotRepository) Save(ctx context.Context, snap *metrics.Snapshot) error {
	query := `
		INSERT INTO metric_snapshots (id, board_id, sprint_id, metric, payload, generated_at)
		VALUES (:id, :board_id, :sprint_id, :metric, :payload, :generated_at)
		ON CONFLICT (board_id, sprint_id, metric) DO UPDATE
		SET payload = EXCLUDED.payload, generated_at = EXCLUDED.generated_at`
	if _, err := r.db.DB.NamedExecContext(ctx, query, snap); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"board_id": snap.BoardID, "sprint_id": snap.SprintID, "metric": snap.Metric}).WithError(err).Error("failed to save metric snapshot")
		}
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) ListByBoard(ctx context.Context, boardID, limit int) ([]*metrics.Snapshot, error) {
	query := `
		SELECT id, board_id, sprint_id, metric, payload, generated_at
		FROM metric_snapshots
		WHERE board_id = $1
		ORDER BY generated_at DESC
		LIMIT $2`
	var snaps []*metrics.Snapshot
	if err := r.db.DB.SelectContext(ctx, &snaps, query, boardID, limit); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)
