package ports

import (
	"context"

	"github.com/agileview/reporting/go/internal/core/domain/metrics"
)

// SnapshotRepository persists computed metric snapshots for dashboard history.
type SnapshotRepository interface {
	Save(ctx context.Context, snap *metrics.Snapshot) error
	ListByBoard(ctx context.Context, boardID, limit int) ([]*metrics.Snapshot, error)
}
