package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
	"github.com/corporatepay/approval-engine/internal/domain/workflow"
	"github.com/corporatepay/approval-engine/internal/infrastructure/persistence/sqlite"
)

// RequestRepository implements port.RequestRepository over sqlite. Structured
// fields (route, attachments, delegation, change request) are stored as JSON
// columns; the engine never queries inside them.
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, org_id, module, category, title, amount_minor, currency, vendor,
	status, triggered_rule_id, route, sla_hours, required_attachments,
	attachments, note, note_required, delegate_allowed, delegation,
	comments_visible, change_request, created_at, updated_at, due_at,
	expires_at, version
`

// Create inserts a new approval request with version 1
func (r *RequestRepository) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	route, requiredAtt, attachments, delegation, changeReq, err := marshalRequestFields(req)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approval_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.ID, req.OrgID, req.Module, req.Category, req.Title,
		req.AmountMinor, req.Currency, req.Vendor,
		req.Status, req.TriggeredRuleID, route, req.SLAHours, requiredAtt,
		attachments, req.Note, req.NoteRequired, req.DelegateAllowed, delegation,
		req.CommentsVisible, changeReq, req.CreatedAt, req.UpdatedAt, req.DueAt,
		req.ExpiresAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Version = 1
	return nil
}

// GetByID retrieves an approval request by id
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE id = ?`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrRequestNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return req, nil
}

// Update persists the full record guarded by the optimistic version check
func (r *RequestRepository) Update(ctx context.Context, req *entity.ApprovalRequest) error {
	route, requiredAtt, attachments, delegation, changeReq, err := marshalRequestFields(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE approval_requests SET
			module = ?, category = ?, title = ?, amount_minor = ?, currency = ?,
			vendor = ?, status = ?, triggered_rule_id = ?, route = ?,
			sla_hours = ?, required_attachments = ?, attachments = ?, note = ?,
			note_required = ?, delegate_allowed = ?, delegation = ?,
			comments_visible = ?, change_request = ?, updated_at = ?,
			due_at = ?, expires_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.Module, req.Category, req.Title, req.AmountMinor, req.Currency,
		req.Vendor, req.Status, req.TriggeredRuleID, route,
		req.SLAHours, requiredAtt, attachments, req.Note,
		req.NoteRequired, req.DelegateAllowed, delegation,
		req.CommentsVisible, changeReq, req.UpdatedAt,
		req.DueAt, req.ExpiresAt,
		req.ID, req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return entity.ErrVersionConflict
	}

	req.Version++
	return nil
}

// List returns requests ordered newest first, optionally filtered by status
func (r *RequestRepository) List(ctx context.Context, status string, limit, offset int) ([]*entity.ApprovalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ListExpirable returns non-terminal requests whose expiry deadline is past
func (r *RequestRepository) ListExpirable(ctx context.Context, before time.Time) ([]*entity.ApprovalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests
		WHERE status IN (?, ?) AND expires_at < ?
		ORDER BY expires_at ASC`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query,
		workflow.StatePending.String(), workflow.StateNeedsChanges.String(), before)
	if err != nil {
		r.logger.Error("Failed to list expirable requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list expirable requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.ApprovalRequest, error) {
	var req entity.ApprovalRequest
	var route, requiredAtt, attachments string
	var delegation, changeReq sql.NullString

	err := row.Scan(
		&req.ID, &req.OrgID, &req.Module, &req.Category, &req.Title,
		&req.AmountMinor, &req.Currency, &req.Vendor,
		&req.Status, &req.TriggeredRuleID, &route, &req.SLAHours, &requiredAtt,
		&attachments, &req.Note, &req.NoteRequired, &req.DelegateAllowed, &delegation,
		&req.CommentsVisible, &changeReq, &req.CreatedAt, &req.UpdatedAt, &req.DueAt,
		&req.ExpiresAt, &req.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(route), &req.Route); err != nil {
		return nil, fmt.Errorf("failed to decode route: %w", err)
	}
	if err := json.Unmarshal([]byte(requiredAtt), &req.RequiredAttachments); err != nil {
		return nil, fmt.Errorf("failed to decode required attachments: %w", err)
	}
	if err := json.Unmarshal([]byte(attachments), &req.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	if delegation.Valid && delegation.String != "" {
		if err := json.Unmarshal([]byte(delegation.String), &req.Delegation); err != nil {
			return nil, fmt.Errorf("failed to decode delegation: %w", err)
		}
	}
	if changeReq.Valid && changeReq.String != "" {
		if err := json.Unmarshal([]byte(changeReq.String), &req.ChangeRequest); err != nil {
			return nil, fmt.Errorf("failed to decode change request: %w", err)
		}
	}

	return &req, nil
}

func collectRequests(rows *sql.Rows) ([]*entity.ApprovalRequest, error) {
	requests := make([]*entity.ApprovalRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	return requests, nil
}

func marshalRequestFields(req *entity.ApprovalRequest) (route, requiredAtt, attachments string, delegation, changeReq sql.NullString, err error) {
	routeBytes, err := json.Marshal(routeOrEmpty(req.Route))
	if err != nil {
		return "", "", "", sql.NullString{}, sql.NullString{}, fmt.Errorf("failed to encode route: %w", err)
	}
	requiredBytes, err := json.Marshal(stringsOrEmpty(req.RequiredAttachments))
	if err != nil {
		return "", "", "", sql.NullString{}, sql.NullString{}, fmt.Errorf("failed to encode required attachments: %w", err)
	}
	attBytes, err := json.Marshal(attachmentsOrEmpty(req.Attachments))
	if err != nil {
		return "", "", "", sql.NullString{}, sql.NullString{}, fmt.Errorf("failed to encode attachments: %w", err)
	}

	if req.Delegation != nil {
		b, merr := json.Marshal(req.Delegation)
		if merr != nil {
			return "", "", "", sql.NullString{}, sql.NullString{}, fmt.Errorf("failed to encode delegation: %w", merr)
		}
		delegation = sql.NullString{String: string(b), Valid: true}
	}
	if req.ChangeRequest != nil {
		b, merr := json.Marshal(req.ChangeRequest)
		if merr != nil {
			return "", "", "", sql.NullString{}, sql.NullString{}, fmt.Errorf("failed to encode change request: %w", merr)
		}
		changeReq = sql.NullString{String: string(b), Valid: true}
	}

	return string(routeBytes), string(requiredBytes), string(attBytes), delegation, changeReq, nil
}

func routeOrEmpty(route []entity.RouteStep) []entity.RouteStep {
	if route == nil {
		return []entity.RouteStep{}
	}
	return route
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func attachmentsOrEmpty(atts []entity.Attachment) []entity.Attachment {
	if atts == nil {
		return []entity.Attachment{}
	}
	return atts
}
