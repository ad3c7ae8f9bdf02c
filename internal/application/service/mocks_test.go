package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// fakeRequestRepo is an in-memory RequestRepository with the same optimistic
// version semantics as the SQLite implementation.
type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*entity.ApprovalRequest

	// updateErr, when set, is returned by the next Update call and cleared
	updateErr error
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]*entity.ApprovalRequest)}
}

func (r *fakeRequestRepo) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.Version = 1
	stored := *req
	r.requests[req.ID] = &stored
	return nil
}

func (r *fakeRequestRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[id]
	if !ok {
		return nil, entity.ErrRequestNotFound
	}
	copy := *stored
	return &copy, nil
}

func (r *fakeRequestRepo) Update(ctx context.Context, req *entity.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		err := r.updateErr
		r.updateErr = nil
		return err
	}
	stored, ok := r.requests[req.ID]
	if !ok {
		return entity.ErrRequestNotFound
	}
	if stored.Version != req.Version {
		return entity.ErrVersionConflict
	}
	req.Version++
	updated := *req
	r.requests[req.ID] = &updated
	return nil
}

func (r *fakeRequestRepo) List(ctx context.Context, status string, limit, offset int) ([]*entity.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ApprovalRequest, 0, len(r.requests))
	for _, req := range r.requests {
		if status != "" && req.Status != status {
			continue
		}
		copy := *req
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRequestRepo) ListExpirable(ctx context.Context, before time.Time) ([]*entity.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ApprovalRequest, 0)
	for _, req := range r.requests {
		if (req.Status == "PENDING" || req.Status == "NEEDS_CHANGES") && req.ExpiresAt.Before(before) {
			copy := *req
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeTimelineRepo assigns per-request seq on append, mirroring the SQLite
// implementation.
type fakeTimelineRepo struct {
	mu      sync.Mutex
	entries []entity.TimelineEntry
	nextID  int64
}

func newFakeTimelineRepo() *fakeTimelineRepo {
	return &fakeTimelineRepo{}
}

func (r *fakeTimelineRepo) Append(ctx context.Context, entry *entity.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	seq := 1
	for _, e := range r.entries {
		if e.RequestID == entry.RequestID && e.Seq >= seq {
			seq = e.Seq + 1
		}
	}
	entry.Seq = seq
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeTimelineRepo) GetByRequestID(ctx context.Context, requestID string) ([]entity.TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.TimelineEntry, 0)
	for _, e := range r.entries {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// actions returns the ordered action names recorded for a request
func (r *fakeTimelineRepo) actions(requestID string) []string {
	entries, _ := r.GetByRequestID(context.Background(), requestID)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeReminderRepo struct {
	mu     sync.Mutex
	logs   map[int64]*entity.ReminderLog
	nextID int64
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{logs: make(map[int64]*entity.ReminderLog)}
}

func (r *fakeReminderRepo) Create(ctx context.Context, log *entity.ReminderLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	log.ID = r.nextID
	stored := *log
	r.logs[log.ID] = &stored
	return nil
}

func (r *fakeReminderRepo) GetByID(ctx context.Context, id int64) (*entity.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.logs[id]
	if !ok {
		return nil, entity.ErrRequestNotFound
	}
	copy := *stored
	return &copy, nil
}

func (r *fakeReminderRepo) GetByRequestID(ctx context.Context, requestID string) ([]entity.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.ReminderLog, 0)
	for _, log := range r.logs {
		if log.RequestID == requestID {
			out = append(out, *log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeReminderRepo) UpdateStatus(ctx context.Context, id int64, status, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.logs[id]
	if !ok {
		return entity.ErrRequestNotFound
	}
	stored.Status = status
	stored.Detail = detail
	return nil
}

// fakeTxManager runs the function directly; the fakes are already atomic
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fixedClock returns a controllable instant
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// fakeProvider records delivery calls for one channel
type fakeProvider struct {
	channel  string
	receipt  *port.DeliveryReceipt
	sendErr  error
	mu       sync.Mutex
	sent     []int64
}

func (p *fakeProvider) Channel() string { return p.channel }

func (p *fakeProvider) Send(ctx context.Context, reminder *entity.ReminderLog, req *entity.ApprovalRequest) (*port.DeliveryReceipt, error) {
	p.mu.Lock()
	p.sent = append(p.sent, reminder.ID)
	p.mu.Unlock()
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	if p.receipt != nil {
		return p.receipt, nil
	}
	return &port.DeliveryReceipt{Delivered: true, Detail: "ok"}, nil
}
