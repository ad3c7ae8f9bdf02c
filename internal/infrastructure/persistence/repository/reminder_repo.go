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

// ReminderRepository implements port.ReminderRepository
type ReminderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *sql.DB, logger *zap.Logger) port.ReminderRepository {
	return &ReminderRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new reminder log entry
func (r *ReminderRepository) Create(ctx context.Context, log *entity.ReminderLog) error {
	query := `
		INSERT INTO reminder_logs (request_id, channel, target_role, status, detail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		log.RequestID, log.Channel, log.TargetRole, log.Status, log.Detail,
		log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create reminder log", zap.String("request_id", log.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create reminder log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	log.ID = id
	return nil
}

// GetByID retrieves a reminder log entry by id
func (r *ReminderRepository) GetByID(ctx context.Context, id int64) (*entity.ReminderLog, error) {
	query := `
		SELECT id, request_id, channel, target_role, status, detail, created_at, updated_at
		FROM reminder_logs WHERE id = ?
	`

	var log entity.ReminderLog
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&log.ID, &log.RequestID, &log.Channel, &log.TargetRole,
		&log.Status, &log.Detail, &log.CreatedAt, &log.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reminder log %d not found", id)
	}
	if err != nil {
		r.logger.Error("Failed to get reminder log", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get reminder log: %w", err)
	}

	return &log, nil
}

// GetByRequestID returns all reminder attempts for a request, oldest first
func (r *ReminderRepository) GetByRequestID(ctx context.Context, requestID string) ([]entity.ReminderLog, error) {
	query := `
		SELECT id, request_id, channel, target_role, status, detail, created_at, updated_at
		FROM reminder_logs
		WHERE request_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list reminder logs", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list reminder logs: %w", err)
	}
	defer rows.Close()

	logs := make([]entity.ReminderLog, 0)
	for rows.Next() {
		var log entity.ReminderLog
		if err := rows.Scan(&log.ID, &log.RequestID, &log.Channel, &log.TargetRole,
			&log.Status, &log.Detail, &log.CreatedAt, &log.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminder logs: %w", err)
	}

	return logs, nil
}

// UpdateStatus advances a reminder's delivery status
func (r *ReminderRepository) UpdateStatus(ctx context.Context, id int64, status, detail string) error {
	query := `
		UPDATE reminder_logs
		SET status = ?, detail = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status, detail, id)
	if err != nil {
		r.logger.Error("Failed to update reminder status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update reminder status: %w", err)
	}
	return nil
}
