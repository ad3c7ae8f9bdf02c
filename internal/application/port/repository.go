package port

import (
	"context"
	"time"

	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// RequestRepository defines persistence operations for ApprovalRequest
type RequestRepository interface {
	Create(ctx context.Context, req *entity.ApprovalRequest) error

	// GetByID returns entity.ErrRequestNotFound when no row exists
	GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error)

	// Update persists the full record guarded by an optimistic version check:
	// the row's stored version must equal req.Version, and the write bumps it.
	// Returns entity.ErrVersionConflict when another writer got there first.
	Update(ctx context.Context, req *entity.ApprovalRequest) error

	// List returns requests ordered by created_at descending. An empty status
	// matches all statuses.
	List(ctx context.Context, status string, limit, offset int) ([]*entity.ApprovalRequest, error)

	// ListExpirable returns non-terminal requests whose expiry deadline is
	// before the given instant, for the SLA sweep.
	ListExpirable(ctx context.Context, before time.Time) ([]*entity.ApprovalRequest, error)
}

// TimelineRepository defines persistence operations for the audit timeline
type TimelineRepository interface {
	// Append writes one entry, assigning the next per-request seq. Must be
	// called inside the same transaction as the status mutation it records.
	Append(ctx context.Context, entry *entity.TimelineEntry) error

	// GetByRequestID returns entries ordered by timestamp, ties broken by seq
	GetByRequestID(ctx context.Context, requestID string) ([]entity.TimelineEntry, error)
}

// ReminderRepository defines persistence operations for ReminderLog
type ReminderRepository interface {
	Create(ctx context.Context, log *entity.ReminderLog) error
	GetByID(ctx context.Context, id int64) (*entity.ReminderLog, error)
	GetByRequestID(ctx context.Context, requestID string) ([]entity.ReminderLog, error)
	UpdateStatus(ctx context.Context, id int64, status, detail string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
