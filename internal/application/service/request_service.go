package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
	"github.com/corporatepay/approval-engine/internal/domain/policy"
	"github.com/corporatepay/approval-engine/internal/domain/sla"
	"github.com/corporatepay/approval-engine/internal/domain/workflow"
)

// SubmitInput carries the requester's submission payload
type SubmitInput struct {
	Actor       string
	Note        string
	Attachments []entity.Attachment
	Delegation  *entity.Delegation
}

// DecideInput carries an approver's decision
type DecideInput struct {
	ActorRole string
	Decision  string
	Rationale string

	// ChangeRequest is required when Decision is REQUEST_CHANGES
	ChangeRequest *entity.ChangeRequest
}

// ResubmitEdits are the requester's pre-resubmission edits. Amount or vendor
// changes force re-evaluation of the matched rule, since a bumped amount may
// route through a different chain with a different SLA.
type ResubmitEdits struct {
	Actor       string
	AmountMinor *int64
	Vendor      *string
	Title       *string
	Note        *string
}

// RequestService owns the canonical ApprovalRequest records; every mutation
// passes through it as an atomic read-modify-write keyed by request id.
type RequestService interface {
	Evaluate(spend policy.SpendContext) *policy.ApprovalRule
	Create(ctx context.Context, spend policy.SpendContext, rule *policy.ApprovalRule) (*entity.ApprovalRequest, error)
	Get(ctx context.Context, id string) (*entity.ApprovalRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]*entity.ApprovalRequest, error)
	ListTimeline(ctx context.Context, id string) ([]entity.TimelineEntry, error)

	Submit(ctx context.Context, id string, in SubmitInput) (*entity.ApprovalRequest, error)
	Decide(ctx context.Context, id string, in DecideInput) (*entity.ApprovalRequest, error)
	Attach(ctx context.Context, id string, actor string, att entity.Attachment) (*entity.ApprovalRequest, error)
	Resubmit(ctx context.Context, id string, edits ResubmitEdits) (*entity.ApprovalRequest, error)
	Cancel(ctx context.Context, id string, actor string) (*entity.ApprovalRequest, error)
	Complete(ctx context.Context, id string, actor string) (*entity.ApprovalRequest, error)

	// SweepExpirations expires every PENDING/NEEDS_CHANGES request whose
	// expiry deadline is behind now. Idempotent; returns the transitioned ids.
	SweepExpirations(ctx context.Context, now time.Time) ([]string, error)
}

type requestServiceImpl struct {
	requestRepo  port.RequestRepository
	timelineRepo port.TimelineRepository
	txManager    port.TransactionManager
	evaluator    *policy.Evaluator
	clock        port.Clock
	expiryGrace  time.Duration
	logger       Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requestRepo port.RequestRepository,
	timelineRepo port.TimelineRepository,
	txManager port.TransactionManager,
	evaluator *policy.Evaluator,
	clock port.Clock,
	expiryGrace time.Duration,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requestRepo:  requestRepo,
		timelineRepo: timelineRepo,
		txManager:    txManager,
		evaluator:    evaluator,
		clock:        clock,
		expiryGrace:  expiryGrace,
		logger:       logger,
	}
}

// Evaluate returns the first matching rule, or nil when no approval is required
func (s *requestServiceImpl) Evaluate(spend policy.SpendContext) *policy.ApprovalRule {
	return s.evaluator.Evaluate(spend)
}

// Create records a new DRAFT request from a spend context and its matched rule
func (s *requestServiceImpl) Create(ctx context.Context, spend policy.SpendContext, rule *policy.ApprovalRule) (*entity.ApprovalRequest, error) {
	if rule == nil {
		return nil, fmt.Errorf("cannot create approval request without a matched rule")
	}

	now := s.clock.Now()
	window := sla.Compute(now, rule.SLAHours, s.expiryGrace)

	req := &entity.ApprovalRequest{
		ID:                  "apr-" + uuid.NewString(),
		OrgID:               spend.OrgID,
		Module:              spend.Module,
		Category:            spend.Category,
		Title:               spend.Title,
		AmountMinor:         spend.AmountMinor,
		Currency:            spend.Currency,
		Vendor:              spend.Vendor,
		Status:              workflow.StateDraft.String(),
		CreatedAt:           now,
		UpdatedAt:           now,
		DueAt:               window.DueAt,
		ExpiresAt:           window.ExpiresAt,
		TriggeredRuleID:     rule.ID,
		Route:               rule.Route,
		SLAHours:            rule.SLAHours,
		RequiredAttachments: rule.RequiredAttachments,
		NoteRequired:        rule.NoteRequired,
		DelegateAllowed:     rule.DelegateAllowed,
		CommentsVisible:     true,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return s.appendTimeline(txCtx, req, entity.ActionCreate, spend.OrgID,
			fmt.Sprintf("Request created under rule %s: %s", rule.ID, rule.Trigger), entity.SeverityInfo, now)
	})
	if err != nil {
		s.logger.Error("Failed to create request", "error", err, "org_id", spend.OrgID)
		return nil, err
	}

	s.logger.Info("Request created", "request_id", req.ID, "rule_id", rule.ID, "amount_minor", spend.AmountMinor)
	return req, nil
}

// Get retrieves a request by id
func (s *requestServiceImpl) Get(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// List retrieves a paginated list of requests, optionally filtered by status
func (s *requestServiceImpl) List(ctx context.Context, status string, limit, offset int) ([]*entity.ApprovalRequest, error) {
	reqs, err := s.requestRepo.List(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err, "limit", limit, "offset", offset)
		return nil, err
	}
	return reqs, nil
}

// ListTimeline returns the ordered audit timeline of a request
func (s *requestServiceImpl) ListTimeline(ctx context.Context, id string) ([]entity.TimelineEntry, error) {
	if _, err := s.requestRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.timelineRepo.GetByRequestID(ctx, id)
}

// Submit transitions DRAFT -> PENDING once every policy-mandated requirement
// is satisfied. A blocked submit fails atomically with every missing item
// enumerated; it never partially submits.
func (s *requestServiceImpl) Submit(ctx context.Context, id string, in SubmitInput) (*entity.ApprovalRequest, error) {
	var result *entity.ApprovalRequest

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		machine := s.machineFor(req)
		if !machine.CanFire(workflow.TriggerSubmit) {
			return &entity.InvalidTransitionError{RequestID: id, From: req.Status, Action: entity.ActionSubmit}
		}

		req.Note = in.Note
		req.Attachments = append(req.Attachments, in.Attachments...)

		check := policy.CheckReady(req)
		reasons := check.Reasons
		if in.Delegation != nil {
			rule := s.evaluator.Config().RuleByID(req.TriggeredRuleID)
			reasons = append(reasons, policy.ValidateDelegation(rule, in.Delegation)...)
		}
		if len(reasons) > 0 {
			return &entity.RequirementsNotMetError{Reasons: reasons}
		}
		req.Delegation = in.Delegation

		if err := machine.Fire(txCtx, workflow.TriggerSubmit); err != nil {
			return s.wrapTransitionErr(err, id, req.Status, entity.ActionSubmit)
		}

		now := s.clock.Now()
		window := sla.Compute(now, req.SLAHours, s.expiryGrace)
		req.Status = machine.State().String()
		req.DueAt = window.DueAt
		req.ExpiresAt = window.ExpiresAt
		req.UpdatedAt = now

		if err := s.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := s.appendTimeline(txCtx, req, entity.ActionSubmit, in.Actor,
			"Submitted for approval", entity.SeverityInfo, now); err != nil {
			return err
		}

		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request submitted", "request_id", id, "due_at", result.DueAt)
	return result, nil
}

// Decide applies an approver's decision at the current routing step
func (s *requestServiceImpl) Decide(ctx context.Context, id string, in DecideInput) (*entity.ApprovalRequest, error) {
	var result *entity.ApprovalRequest

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		machine := s.machineFor(req)
		now := s.clock.Now()

		var trigger workflow.Trigger
		var action, severity string

		switch in.Decision {
		case entity.DecisionApprove:
			trigger = workflow.TriggerApprove
			action = entity.ActionApprove
			severity = entity.SeverityInfo
			// Delegated approvals are recorded distinctly for compliance
			if req.Delegation != nil {
				action = entity.ActionDelegatedApprove
			}
		case entity.DecisionReject:
			if strings.TrimSpace(in.Rationale) == "" {
				return &entity.RequirementsNotMetError{Reasons: []string{"rejection rationale is required"}}
			}
			trigger = workflow.TriggerReject
			action = entity.ActionReject
			severity = entity.SeverityWarning
		case entity.DecisionRequestChanges:
			if in.ChangeRequest == nil {
				return &entity.RequirementsNotMetError{Reasons: []string{"change request details are required"}}
			}
			trigger = workflow.TriggerRequestChanges
			action = entity.ActionRequestChanges
			severity = entity.SeverityWarning
		default:
			return fmt.Errorf("unknown decision: %s", in.Decision)
		}

		if err := machine.Fire(txCtx, trigger); err != nil {
			return s.wrapTransitionErr(err, id, req.Status, action)
		}

		req.Status = machine.State().String()
		req.UpdatedAt = now
		if in.Decision == entity.DecisionRequestChanges {
			cr := *in.ChangeRequest
			cr.CreatedAt = now
			req.ChangeRequest = &cr
		}

		if err := s.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := s.appendTimeline(txCtx, req, action, in.ActorRole, in.Rationale, severity, now); err != nil {
			return err
		}

		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Decision applied", "request_id", id, "decision", in.Decision, "status", result.Status)
	return result, nil
}

// Attach adds an attachment to a non-terminal request. While in NEEDS_CHANGES
// this live-updates the missing-docs computation for the resubmit gate.
func (s *requestServiceImpl) Attach(ctx context.Context, id string, actor string, att entity.Attachment) (*entity.ApprovalRequest, error) {
	var result *entity.ApprovalRequest

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		state := workflow.State(req.Status)
		if state.IsTerminal() || state == workflow.StateRejected || state == workflow.StateExpired {
			return &entity.InvalidTransitionError{RequestID: id, From: req.Status, Action: entity.ActionAttach}
		}

		now := s.clock.Now()
		if att.UploadedAt.IsZero() {
			att.UploadedAt = now
		}
		req.Attachments = append(req.Attachments, att)
		req.UpdatedAt = now

		if err := s.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := s.appendTimeline(txCtx, req, entity.ActionAttach, actor,
			fmt.Sprintf("Attached %s", att.Name), entity.SeverityInfo, now); err != nil {
			return err
		}

		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Resubmit re-enters PENDING from NEEDS_CHANGES, EXPIRED or REJECTED with a
// brand-new SLA window. From NEEDS_CHANGES the required-docs gate applies;
// from EXPIRED and REJECTED resubmission is ungated.
func (s *requestServiceImpl) Resubmit(ctx context.Context, id string, edits ResubmitEdits) (*entity.ApprovalRequest, error) {
	var result *entity.ApprovalRequest

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		if workflow.State(req.Status) == workflow.StateNeedsChanges {
			if check := policy.CheckResubmitReady(req); !check.Ready {
				return &entity.RequirementsNotMetError{Reasons: check.Reasons}
			}
		}

		machine := s.machineFor(req)
		if err := machine.Fire(txCtx, workflow.TriggerResubmit); err != nil {
			return s.wrapTransitionErr(err, id, req.Status, entity.ActionResubmit)
		}

		s.applyEdits(req, edits)

		now := s.clock.Now()
		window := sla.Compute(now, req.SLAHours, s.expiryGrace)
		req.Status = machine.State().String()
		req.DueAt = window.DueAt
		req.ExpiresAt = window.ExpiresAt
		req.UpdatedAt = now
		// The change request is cleared exactly here, never before
		req.ChangeRequest = nil

		if err := s.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := s.appendTimeline(txCtx, req, entity.ActionResubmit, edits.Actor,
			"Resubmitted with a fresh approval window", entity.SeverityInfo, now); err != nil {
			return err
		}

		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request resubmitted", "request_id", id, "rule_id", result.TriggeredRuleID, "due_at", result.DueAt)
	return result, nil
}

// applyEdits mutates the request with pre-resubmission edits and re-evaluates
// policy when the amount or vendor changed. Skipping re-evaluation here would
// let a bumped amount keep a routing chain and SLA it no longer qualifies for.
func (s *requestServiceImpl) applyEdits(req *entity.ApprovalRequest, edits ResubmitEdits) {
	reevaluate := false
	if edits.AmountMinor != nil && *edits.AmountMinor != req.AmountMinor {
		req.AmountMinor = *edits.AmountMinor
		reevaluate = true
	}
	if edits.Vendor != nil && *edits.Vendor != req.Vendor {
		req.Vendor = *edits.Vendor
		reevaluate = true
	}
	if edits.Title != nil {
		req.Title = *edits.Title
	}
	if edits.Note != nil {
		req.Note = *edits.Note
	}

	if !reevaluate {
		return
	}

	rule := s.evaluator.Evaluate(policy.SpendContext{
		OrgID:       req.OrgID,
		Module:      req.Module,
		Category:    req.Category,
		Vendor:      req.Vendor,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Title:       req.Title,
	})
	if rule == nil {
		// No rule matches the edited spend anymore; keep the original routing
		// so the already-opened request still completes its chain.
		s.logger.Info("Edited spend matches no rule, keeping original routing", "request_id", req.ID)
		return
	}

	req.TriggeredRuleID = rule.ID
	req.Route = rule.Route
	req.SLAHours = rule.SLAHours
	req.RequiredAttachments = rule.RequiredAttachments
	req.NoteRequired = rule.NoteRequired
	req.DelegateAllowed = rule.DelegateAllowed
	if !rule.DelegateAllowed {
		req.Delegation = nil
	}
}

// Cancel is requester-initiated and permitted from every state except
// CANCELLED and COMPLETED
func (s *requestServiceImpl) Cancel(ctx context.Context, id string, actor string) (*entity.ApprovalRequest, error) {
	return s.simpleTransition(ctx, id, actor, workflow.TriggerCancel, entity.ActionCancel,
		"Cancelled by requester", entity.SeverityInfo)
}

// Complete finalizes an APPROVED request; no further mutation is possible after
func (s *requestServiceImpl) Complete(ctx context.Context, id string, actor string) (*entity.ApprovalRequest, error) {
	return s.simpleTransition(ctx, id, actor, workflow.TriggerComplete, entity.ActionComplete,
		"Transaction finalized", entity.SeverityInfo)
}

func (s *requestServiceImpl) simpleTransition(ctx context.Context, id, actor string, trigger workflow.Trigger, action, rationale, severity string) (*entity.ApprovalRequest, error) {
	var result *entity.ApprovalRequest

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		machine := s.machineFor(req)
		if err := machine.Fire(txCtx, trigger); err != nil {
			return s.wrapTransitionErr(err, id, req.Status, action)
		}

		now := s.clock.Now()
		req.Status = machine.State().String()
		req.UpdatedAt = now

		if err := s.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		if err := s.appendTimeline(txCtx, req, action, actor, rationale, severity, now); err != nil {
			return err
		}

		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transition applied", "request_id", id, "action", action, "status", result.Status)
	return result, nil
}

// SweepExpirations expires overdue requests. Each record is handled in its own
// transaction with an optimistic version check, so a user-initiated transition
// racing the sweep always wins and a failed record never aborts the sweep.
func (s *requestServiceImpl) SweepExpirations(ctx context.Context, now time.Time) ([]string, error) {
	candidates, err := s.requestRepo.ListExpirable(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list expirable: %w", err)
	}

	transitioned := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		id := candidate.ID

		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			req, err := s.requestRepo.GetByID(txCtx, id)
			if err != nil {
				return err
			}

			// Re-check under the transaction: a concurrent decision or a
			// previous sweep run may already have moved the request on.
			state := workflow.State(req.Status)
			if !state.IsExpirable() || !req.ExpiresAt.Before(now) {
				return nil
			}

			machine := s.machineFor(req)
			if err := machine.Fire(txCtx, workflow.TriggerExpire); err != nil {
				return s.wrapTransitionErr(err, id, req.Status, entity.ActionExpire)
			}

			req.Status = machine.State().String()
			req.UpdatedAt = now

			if err := s.requestRepo.Update(txCtx, req); err != nil {
				return err
			}
			if err := s.appendTimeline(txCtx, req, entity.ActionExpire, entity.SystemActor,
				"Approval window elapsed without a decision", entity.SeverityCritical, now); err != nil {
				return err
			}

			transitioned = append(transitioned, id)
			return nil
		})
		if err != nil {
			if errors.Is(err, entity.ErrVersionConflict) {
				// Lost the race to a user-initiated transition; their write wins
				s.logger.Info("Sweep lost race, skipping", "request_id", id)
				continue
			}
			s.logger.Error("Failed to expire request, will retry next sweep", "error", err, "request_id", id)
		}
	}

	if len(transitioned) > 0 {
		s.logger.Info("Expired overdue requests", "count", len(transitioned))
	}
	return transitioned, nil
}

func (s *requestServiceImpl) machineFor(req *entity.ApprovalRequest) workflow.StateMachine {
	return workflow.NewLifecycle(workflow.State(req.Status), workflow.Guards{
		CanResubmit: func(ctx context.Context) bool {
			return policy.CheckResubmitReady(req).Ready
		},
	})
}

func (s *requestServiceImpl) wrapTransitionErr(err error, id, from, action string) error {
	if errors.Is(err, workflow.ErrInvalidTransition) || errors.Is(err, workflow.ErrGuardFailed) {
		return &entity.InvalidTransitionError{RequestID: id, From: from, Action: action}
	}
	return err
}

func (s *requestServiceImpl) appendTimeline(ctx context.Context, req *entity.ApprovalRequest, action, actor, rationale, severity string, ts time.Time) error {
	entry := &entity.TimelineEntry{
		RequestID: req.ID,
		Timestamp: ts,
		Actor:     actor,
		Action:    action,
		Rationale: rationale,
		Severity:  severity,
	}
	if err := s.timelineRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append timeline: %w", err)
	}
	return nil
}
