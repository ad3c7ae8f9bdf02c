// Package inapp serves the in-app reminder channel. Delivery is a local
// append to the recipient's feed, so a send that reaches this provider
// always resolves to delivered.
package inapp

import (
	"context"
	"fmt"
	"sync"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// Notice is one in-app feed entry
type Notice struct {
	RequestID  string
	TargetRole string
	Message    string
}

// Provider implements port.NotificationProvider for the in-app channel
type Provider struct {
	mu      sync.Mutex
	notices []Notice
}

// NewProvider creates an in-app notification provider
func NewProvider() *Provider {
	return &Provider{}
}

// Channel returns the reminder channel this provider serves
func (p *Provider) Channel() string {
	return entity.ChannelInApp
}

// Send appends the reminder to the in-app feed
func (p *Provider) Send(ctx context.Context, reminder *entity.ReminderLog, req *entity.ApprovalRequest) (*port.DeliveryReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.notices = append(p.notices, Notice{
		RequestID:  req.ID,
		TargetRole: reminder.TargetRole,
		Message:    fmt.Sprintf("%q is awaiting your decision", req.Title),
	})

	return &port.DeliveryReceipt{Delivered: true, Detail: "in-app feed"}, nil
}

// Notices returns a copy of the feed, oldest first
func (p *Provider) Notices() []Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notice{}, p.notices...)
}

// Verify interface compliance
var _ port.NotificationProvider = (*Provider)(nil)
