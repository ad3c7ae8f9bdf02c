package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/application/service"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
	"github.com/corporatepay/approval-engine/internal/domain/policy"
	"github.com/corporatepay/approval-engine/internal/report"
)

// mockRequestService implements service.RequestService with function fields
type mockRequestService struct {
	evaluateFunc     func(spend policy.SpendContext) *policy.ApprovalRule
	createFunc       func(ctx context.Context, spend policy.SpendContext, rule *policy.ApprovalRule) (*entity.ApprovalRequest, error)
	getFunc          func(ctx context.Context, id string) (*entity.ApprovalRequest, error)
	listFunc         func(ctx context.Context, status string, limit, offset int) ([]*entity.ApprovalRequest, error)
	listTimelineFunc func(ctx context.Context, id string) ([]entity.TimelineEntry, error)
	submitFunc       func(ctx context.Context, id string, in service.SubmitInput) (*entity.ApprovalRequest, error)
	decideFunc       func(ctx context.Context, id string, in service.DecideInput) (*entity.ApprovalRequest, error)
	attachFunc       func(ctx context.Context, id, actor string, att entity.Attachment) (*entity.ApprovalRequest, error)
	resubmitFunc     func(ctx context.Context, id string, edits service.ResubmitEdits) (*entity.ApprovalRequest, error)
	cancelFunc       func(ctx context.Context, id, actor string) (*entity.ApprovalRequest, error)
	completeFunc     func(ctx context.Context, id, actor string) (*entity.ApprovalRequest, error)
	sweepFunc        func(ctx context.Context, now time.Time) ([]string, error)
}

func (m *mockRequestService) Evaluate(spend policy.SpendContext) *policy.ApprovalRule {
	return m.evaluateFunc(spend)
}

func (m *mockRequestService) Create(ctx context.Context, spend policy.SpendContext, rule *policy.ApprovalRule) (*entity.ApprovalRequest, error) {
	return m.createFunc(ctx, spend, rule)
}

func (m *mockRequestService) Get(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	return m.getFunc(ctx, id)
}

func (m *mockRequestService) List(ctx context.Context, status string, limit, offset int) ([]*entity.ApprovalRequest, error) {
	return m.listFunc(ctx, status, limit, offset)
}

func (m *mockRequestService) ListTimeline(ctx context.Context, id string) ([]entity.TimelineEntry, error) {
	return m.listTimelineFunc(ctx, id)
}

func (m *mockRequestService) Submit(ctx context.Context, id string, in service.SubmitInput) (*entity.ApprovalRequest, error) {
	return m.submitFunc(ctx, id, in)
}

func (m *mockRequestService) Decide(ctx context.Context, id string, in service.DecideInput) (*entity.ApprovalRequest, error) {
	return m.decideFunc(ctx, id, in)
}

func (m *mockRequestService) Attach(ctx context.Context, id, actor string, att entity.Attachment) (*entity.ApprovalRequest, error) {
	return m.attachFunc(ctx, id, actor, att)
}

func (m *mockRequestService) Resubmit(ctx context.Context, id string, edits service.ResubmitEdits) (*entity.ApprovalRequest, error) {
	return m.resubmitFunc(ctx, id, edits)
}

func (m *mockRequestService) Cancel(ctx context.Context, id, actor string) (*entity.ApprovalRequest, error) {
	return m.cancelFunc(ctx, id, actor)
}

func (m *mockRequestService) Complete(ctx context.Context, id, actor string) (*entity.ApprovalRequest, error) {
	return m.completeFunc(ctx, id, actor)
}

func (m *mockRequestService) SweepExpirations(ctx context.Context, now time.Time) ([]string, error) {
	return m.sweepFunc(ctx, now)
}

type mockReminderService struct {
	sendFunc func(ctx context.Context, requestID, channel, targetRole string) (*entity.ReminderLog, error)
	listFunc func(ctx context.Context, requestID string) ([]entity.ReminderLog, error)
	queue    chan int64
}

func (m *mockReminderService) SendReminder(ctx context.Context, requestID, channel, targetRole string) (*entity.ReminderLog, error) {
	return m.sendFunc(ctx, requestID, channel, targetRole)
}

func (m *mockReminderService) Deliver(ctx context.Context, reminderID int64) error { return nil }

func (m *mockReminderService) Queue() <-chan int64 { return m.queue }

func (m *mockReminderService) ListReminders(ctx context.Context, requestID string) ([]entity.ReminderLog, error) {
	return m.listFunc(ctx, requestID)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func testRequest(id, status string) *entity.ApprovalRequest {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &entity.ApprovalRequest{
		ID:          id,
		OrgID:       "org-test",
		Module:      "procurement",
		Title:       "Q4 warehouse stock",
		AmountMinor: 280000000,
		Currency:    "UGX",
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

func setupRouter(requests service.RequestService, reminders service.ReminderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := NewHandlers(requests, reminders, report.NewExporter(zap.NewNop()), nopLogger{})

	api := router.Group("/api")
	{
		api.POST("/requests", handlers.CreateRequest)
		api.GET("/requests", handlers.ListRequests)
		api.GET("/requests/:id", handlers.GetRequest)
		api.POST("/requests/:id/submit", handlers.SubmitRequest)
		api.POST("/requests/:id/decision", handlers.Decide)
		api.GET("/requests/:id/timeline", handlers.ListTimeline)
		api.POST("/requests/:id/reminders", handlers.SendReminder)
	}
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRequest(t *testing.T) {
	rule := &policy.ApprovalRule{ID: "rule-high", SLAHours: 8}

	t.Run("no matching rule means no approval required", func(t *testing.T) {
		requests := &mockRequestService{
			evaluateFunc: func(spend policy.SpendContext) *policy.ApprovalRule { return nil },
		}
		router := setupRouter(requests, &mockReminderService{})

		w := performJSON(t, router, http.MethodPost, "/api/requests", CreateRequestBody{
			OrgID:       "org-test",
			Module:      "expenses",
			AmountMinor: 1000,
			Currency:    "UGX",
			Title:       "Taxi fare",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"approval_required":false`)
	})

	t.Run("matching rule opens a draft request", func(t *testing.T) {
		requests := &mockRequestService{
			evaluateFunc: func(spend policy.SpendContext) *policy.ApprovalRule { return rule },
			createFunc: func(ctx context.Context, spend policy.SpendContext, r *policy.ApprovalRule) (*entity.ApprovalRequest, error) {
				assert.Equal(t, "rule-high", r.ID)
				return testRequest("apr-1", "DRAFT"), nil
			},
		}
		router := setupRouter(requests, &mockReminderService{})

		w := performJSON(t, router, http.MethodPost, "/api/requests", CreateRequestBody{
			OrgID:       "org-test",
			Module:      "procurement",
			AmountMinor: 280000000,
			Currency:    "UGX",
			Title:       "Q4 warehouse stock",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"approval_required":true`)
		assert.Contains(t, w.Body.String(), "apr-1")
	})

	t.Run("missing required fields is a bad request", func(t *testing.T) {
		router := setupRouter(&mockRequestService{}, &mockReminderService{})

		w := performJSON(t, router, http.MethodPost, "/api/requests", map[string]interface{}{
			"org_id": "org-test",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	t.Run("requirements not met maps to 422 with reasons", func(t *testing.T) {
		requests := &mockRequestService{
			submitFunc: func(ctx context.Context, id string, in service.SubmitInput) (*entity.ApprovalRequest, error) {
				return nil, &entity.RequirementsNotMetError{Reasons: []string{
					"missing required attachment: Quotation",
					"note is required with at least 10 characters",
				}}
			},
		}
		router := setupRouter(requests, &mockReminderService{})

		w := performJSON(t, router, http.MethodPost, "/api/requests/apr-1/submit", SubmitBody{Actor: "requester-1"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, []string{
			"missing required attachment: Quotation",
			"note is required with at least 10 characters",
		}, resp.Reasons)
	})

	t.Run("invalid transition maps to 409", func(t *testing.T) {
		requests := &mockRequestService{
			decideFunc: func(ctx context.Context, id string, in service.DecideInput) (*entity.ApprovalRequest, error) {
				return nil, &entity.InvalidTransitionError{RequestID: id, From: "CANCELLED", Action: entity.ActionApprove}
			},
		}
		router := setupRouter(requests, &mockReminderService{})

		w := performJSON(t, router, http.MethodPost, "/api/requests/apr-1/decision", DecisionBody{
			ActorRole: "finance_manager",
			Decision:  entity.DecisionApprove,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "CANCELLED")
	})

	t.Run("channel not allowed maps to 422", func(t *testing.T) {
		reminders := &mockReminderService{
			sendFunc: func(ctx context.Context, requestID, channel, targetRole string) (*entity.ReminderLog, error) {
				return nil, &entity.ChannelNotAllowedError{Channel: channel}
			},
		}
		router := setupRouter(&mockRequestService{}, reminders)

		w := performJSON(t, router, http.MethodPost, "/api/requests/apr-1/reminders", ReminderBody{
			Channel:    "sms",
			TargetRole: "finance_manager",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "sms")
	})

	t.Run("unknown request maps to 404", func(t *testing.T) {
		requests := &mockRequestService{
			getFunc: func(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
				return nil, entity.ErrRequestNotFound
			},
		}
		router := setupRouter(requests, &mockReminderService{})

		w := performJSON(t, router, http.MethodGet, "/api/requests/apr-missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unexpected errors map to 500", func(t *testing.T) {
		requests := &mockRequestService{
			getFunc: func(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
				return nil, errors.New("disk on fire")
			},
		}
		router := setupRouter(requests, &mockReminderService{})

		w := performJSON(t, router, http.MethodGet, "/api/requests/apr-1", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "disk on fire", "internal detail must not leak")
	})
}

func TestListRequests_PaginationDefaults(t *testing.T) {
	var gotLimit, gotOffset int
	requests := &mockRequestService{
		listFunc: func(ctx context.Context, status string, limit, offset int) ([]*entity.ApprovalRequest, error) {
			gotLimit, gotOffset = limit, offset
			return []*entity.ApprovalRequest{}, nil
		},
	}
	router := setupRouter(requests, &mockReminderService{})

	w := performJSON(t, router, http.MethodGet, "/api/requests", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 0, gotOffset)

	performJSON(t, router, http.MethodGet, "/api/requests?limit=500&offset=-3", nil)
	assert.Equal(t, 20, gotLimit, "limit above the maximum falls back to the default")
	assert.Equal(t, 0, gotOffset, "negative offset is clamped")

	performJSON(t, router, http.MethodGet, "/api/requests?limit=50&offset=10", nil)
	assert.Equal(t, 50, gotLimit)
	assert.Equal(t, 10, gotOffset)
}

func TestGetRequest_IncludesGatingState(t *testing.T) {
	req := testRequest("apr-1", "DRAFT")
	req.RequiredAttachments = []string{"Quotation"}
	req.NoteRequired = true

	requests := &mockRequestService{
		getFunc: func(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
			return req, nil
		},
	}
	router := setupRouter(requests, &mockReminderService{})

	w := performJSON(t, router, http.MethodGet, "/api/requests/apr-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data RequestView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Ready)
	assert.Equal(t, []string{
		"missing required attachment: Quotation",
		"note is required with at least 10 characters",
	}, resp.Data.BlockedBy)
}

func TestListTimeline(t *testing.T) {
	requests := &mockRequestService{
		listTimelineFunc: func(ctx context.Context, id string) ([]entity.TimelineEntry, error) {
			return []entity.TimelineEntry{
				{RequestID: id, Seq: 1, Action: entity.ActionCreate, Severity: entity.SeverityInfo},
				{RequestID: id, Seq: 2, Action: entity.ActionSubmit, Severity: entity.SeverityInfo},
			}, nil
		},
	}
	router := setupRouter(requests, &mockReminderService{})

	w := performJSON(t, router, http.MethodGet, "/api/requests/apr-1/timeline", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), entity.ActionCreate)
	assert.Contains(t, w.Body.String(), entity.ActionSubmit)
}
