package port

import (
	"context"
	"time"

	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// Clock abstracts wall-clock time so the engine is deterministic in tests
type Clock interface {
	Now() time.Time
}

// DeliveryReceipt is a provider's report of a reminder delivery outcome
type DeliveryReceipt struct {
	Delivered bool
	Detail    string
}

// NotificationProvider delivers a reminder over one channel. Send is invoked
// after the reminder is queued and must not hold any request lock; the
// receipt drives the SENT -> DELIVERED|FAILED transition.
type NotificationProvider interface {
	// Channel returns the reminder channel this provider serves
	Channel() string

	// Send delivers the reminder for the given request
	Send(ctx context.Context, reminder *entity.ReminderLog, req *entity.ApprovalRequest) (*DeliveryReceipt, error)
}
