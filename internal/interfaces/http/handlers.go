package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/corporatepay/approval-engine/internal/application/service"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
	"github.com/corporatepay/approval-engine/internal/domain/policy"
	"github.com/corporatepay/approval-engine/internal/report"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	requestService  service.RequestService
	reminderService service.ReminderService
	exporter        *report.Exporter
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requestService service.RequestService,
	reminderService service.ReminderService,
	exporter *report.Exporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		requestService:  requestService,
		reminderService: reminderService,
		exporter:        exporter,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Reasons []string    `json:"reasons,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the spend context of a prospective request
type CreateRequestBody struct {
	OrgID       string `json:"org_id" binding:"required"`
	Module      string `json:"module" binding:"required"`
	Category    string `json:"category"`
	Vendor      string `json:"vendor"`
	AmountMinor int64  `json:"amount_minor" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	Title       string `json:"title" binding:"required"`
}

// SubmitBody carries the submission payload
type SubmitBody struct {
	Actor       string              `json:"actor"`
	Note        string              `json:"note"`
	Attachments []entity.Attachment `json:"attachments"`
	Delegation  *entity.Delegation  `json:"delegation,omitempty"`
}

// DecisionBody carries an approver's decision
type DecisionBody struct {
	ActorRole     string                `json:"actor_role" binding:"required"`
	Decision      string                `json:"decision" binding:"required"`
	Rationale     string                `json:"rationale"`
	ChangeRequest *entity.ChangeRequest `json:"change_request,omitempty"`
}

// ResubmitBody carries pre-resubmission edits
type ResubmitBody struct {
	Actor       string  `json:"actor"`
	AmountMinor *int64  `json:"amount_minor,omitempty"`
	Vendor      *string `json:"vendor,omitempty"`
	Title       *string `json:"title,omitempty"`
	Note        *string `json:"note,omitempty"`
}

// ReminderBody carries a reminder dispatch
type ReminderBody struct {
	Channel    string `json:"channel" binding:"required"`
	TargetRole string `json:"target_role" binding:"required"`
}

// ActorBody carries the acting party for simple transitions
type ActorBody struct {
	Actor string `json:"actor"`
}

// RequestView decorates a request with its live submit/resubmit gating state
type RequestView struct {
	*entity.ApprovalRequest
	Ready       bool     `json:"ready"`
	BlockedBy   []string `json:"blocked_by,omitempty"`
	MissingDocs []string `json:"missing_docs,omitempty"`
}

// ListRequestsQuery represents query parameters for listing requests
type ListRequestsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateRequest handles POST /api/requests: evaluates policy and, when
// approval is required, creates a DRAFT request
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	spend := policy.SpendContext{
		OrgID:       body.OrgID,
		Module:      body.Module,
		Category:    body.Category,
		Vendor:      body.Vendor,
		AmountMinor: body.AmountMinor,
		Currency:    body.Currency,
		Title:       body.Title,
	}

	rule := h.requestService.Evaluate(spend)
	if rule == nil {
		// No configured rule matches: no approval required, not an error
		c.JSON(http.StatusOK, Response{
			Success: true,
			Data:    gin.H{"approval_required": false},
		})
		return
	}

	req, err := h.requestService.Create(c.Request.Context(), spend, rule)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data: gin.H{
			"approval_required": true,
			"request":           h.view(req),
		},
	})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}

	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	reqs, err := h.requestService.List(c.Request.Context(), q.Status, q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]*RequestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, h.view(req))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: views})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.view(req)})
}

// SubmitRequest handles POST /api/requests/:id/submit
func (h *Handlers) SubmitRequest(c *gin.Context) {
	var body SubmitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	req, err := h.requestService.Submit(c.Request.Context(), c.Param("id"), service.SubmitInput{
		Actor:       body.Actor,
		Note:        body.Note,
		Attachments: body.Attachments,
		Delegation:  body.Delegation,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.view(req)})
}

// Decide handles POST /api/requests/:id/decision
func (h *Handlers) Decide(c *gin.Context) {
	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	req, err := h.requestService.Decide(c.Request.Context(), c.Param("id"), service.DecideInput{
		ActorRole:     body.ActorRole,
		Decision:      body.Decision,
		Rationale:     body.Rationale,
		ChangeRequest: body.ChangeRequest,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.view(req)})
}

// Attach handles POST /api/requests/:id/attachments
func (h *Handlers) Attach(c *gin.Context) {
	var body struct {
		Actor      string            `json:"actor"`
		Attachment entity.Attachment `json:"attachment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	req, err := h.requestService.Attach(c.Request.Context(), c.Param("id"), body.Actor, body.Attachment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.view(req)})
}

// Resubmit handles POST /api/requests/:id/resubmit
func (h *Handlers) Resubmit(c *gin.Context) {
	var body ResubmitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	req, err := h.requestService.Resubmit(c.Request.Context(), c.Param("id"), service.ResubmitEdits{
		Actor:       body.Actor,
		AmountMinor: body.AmountMinor,
		Vendor:      body.Vendor,
		Title:       body.Title,
		Note:        body.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.view(req)})
}

// Cancel handles POST /api/requests/:id/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	var body ActorBody
	_ = c.ShouldBindJSON(&body)

	req, err := h.requestService.Cancel(c.Request.Context(), c.Param("id"), body.Actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.view(req)})
}

// Complete handles POST /api/requests/:id/complete
func (h *Handlers) Complete(c *gin.Context) {
	var body ActorBody
	_ = c.ShouldBindJSON(&body)

	req, err := h.requestService.Complete(c.Request.Context(), c.Param("id"), body.Actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.view(req)})
}

// SendReminder handles POST /api/requests/:id/reminders
func (h *Handlers) SendReminder(c *gin.Context) {
	var body ReminderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	log, err := h.reminderService.SendReminder(c.Request.Context(), c.Param("id"), body.Channel, body.TargetRole)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, Response{Success: true, Data: log})
}

// ListReminders handles GET /api/requests/:id/reminders
func (h *Handlers) ListReminders(c *gin.Context) {
	logs, err := h.reminderService.ListReminders(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: logs})
}

// ListTimeline handles GET /api/requests/:id/timeline
func (h *Handlers) ListTimeline(c *gin.Context) {
	entries, err := h.requestService.ListTimeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// ExportRequest handles GET /api/requests/:id/export
func (h *Handlers) ExportRequest(c *gin.Context) {
	id := c.Param("id")

	req, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	timeline, err := h.requestService.ListTimeline(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", id))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.exporter.WriteRequest(req, timeline, c.Writer); err != nil {
		h.logger.Error("Failed to export request", "error", err, "request_id", id)
		c.Status(http.StatusInternalServerError)
	}
}

// view decorates a request with its live gating state so callers can explain
// why a submit or resubmit is blocked, not merely see it refused
func (h *Handlers) view(req *entity.ApprovalRequest) *RequestView {
	view := &RequestView{ApprovalRequest: req}

	check := policy.CheckReady(req)
	view.Ready = check.Ready
	view.BlockedBy = check.Reasons

	if req.ChangeRequest != nil {
		view.MissingDocs = policy.MissingDocs(req.ChangeRequest.RequiredDocs, req.Attachments)
	}

	return view
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.logger.Error("Invalid request payload", "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   "invalid request payload",
	})
}

// respondError maps the engine's error taxonomy onto HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	var reqsErr *entity.RequirementsNotMetError
	var transErr *entity.InvalidTransitionError
	var chanErr *entity.ChannelNotAllowedError

	switch {
	case errors.As(err, &reqsErr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   "requirements not met",
			Reasons: reqsErr.Reasons,
		})
	case errors.As(err, &transErr):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   transErr.Error(),
		})
	case errors.As(err, &chanErr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   chanErr.Error(),
		})
	case errors.Is(err, entity.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "request not found",
		})
	default:
		h.logger.Error("Unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal error",
		})
	}
}
