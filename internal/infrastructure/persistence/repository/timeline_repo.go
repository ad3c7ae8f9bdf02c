package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
	"github.com/corporatepay/approval-engine/internal/infrastructure/persistence/sqlite"
)

// TimelineRepository implements port.TimelineRepository. The timeline is
// append-only; entries are never updated or deleted.
type TimelineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db *sql.DB, logger *zap.Logger) port.TimelineRepository {
	return &TimelineRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one entry, assigning the next per-request seq. The seq
// subquery and the insert run on the same executor, so calling inside the
// mutation's transaction keeps the entry and the status change atomic.
func (r *TimelineRepository) Append(ctx context.Context, entry *entity.TimelineEntry) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		INSERT INTO timeline_entries (request_id, seq, timestamp, actor, action, rationale, severity)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM timeline_entries WHERE request_id = ?), ?, ?, ?, ?, ?)
	`

	result, err := exec.ExecContext(ctx, query,
		entry.RequestID, entry.RequestID,
		entry.Timestamp, entry.Actor, entry.Action, entry.Rationale, entry.Severity,
	)
	if err != nil {
		r.logger.Error("Failed to append timeline entry", zap.String("request_id", entry.RequestID), zap.Error(err))
		return fmt.Errorf("failed to append timeline entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id

	row := exec.QueryRowContext(ctx, `SELECT seq FROM timeline_entries WHERE id = ?`, id)
	if err := row.Scan(&entry.Seq); err != nil {
		return fmt.Errorf("failed to read assigned seq: %w", err)
	}

	return nil
}

// GetByRequestID returns entries ordered by timestamp, equal timestamps
// broken by insertion order
func (r *TimelineRepository) GetByRequestID(ctx context.Context, requestID string) ([]entity.TimelineEntry, error) {
	query := `
		SELECT id, request_id, seq, timestamp, actor, action, rationale, severity
		FROM timeline_entries
		WHERE request_id = ?
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get timeline", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}
	defer rows.Close()

	entries := make([]entity.TimelineEntry, 0)
	for rows.Next() {
		var e entity.TimelineEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Seq, &e.Timestamp, &e.Actor, &e.Action, &e.Rationale, &e.Severity); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timeline: %w", err)
	}

	return entries, nil
}
