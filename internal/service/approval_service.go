package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"serviceease/internal/model"
	"serviceease/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// UsageDeclaration is one line of the technician's completion report: which
// item, how many, and whether a fractional amount was drawn from an opened
// unit instead of consuming whole units.
type UsageDeclaration struct {
	ItemID          string  `json:"item_id" binding:"required"`
	Quantity        int     `json:"quantity" binding:"required"`
	ConsumptionType string  `json:"consumption_type" binding:"omitempty,oneof=full partial"`
	AmountConsumed  *string `json:"amount_consumed"` // ml or grams, decimal string
}

type SubmitCompletionRequest struct {
	Report string             `json:"report" binding:"required"`
	Usage  []UsageDeclaration `json:"usage"`
}

type ApprovalResponse struct {
	ID              string  `json:"id"`
	WorkOrderID     string  `json:"work_order_id"`
	Status          string  `json:"status"`
	TechnicianNotes string  `json:"technician_notes"`
	ApproverNotes   string  `json:"approver_notes,omitempty"`
	SubmittedAt     string  `json:"submitted_at"`
	ReviewedAt      *string `json:"reviewed_at,omitempty"`
	ApproverName    string  `json:"approver_name,omitempty"`
}

type UsageRowResponse struct {
	ItemID          string  `json:"item_id"`
	ItemName        string  `json:"item_name,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	Quantity        int     `json:"quantity"`
	ConsumptionType string  `json:"consumption_type"`
	AmountConsumed  *string `json:"amount_consumed,omitempty"`
}

type ApprovalDetailResponse struct {
	Approval  ApprovalResponse   `json:"approval"`
	WorkOrder WorkOrderResponse  `json:"work_order"`
	ItemsUsed []UsageRowResponse `json:"items_used"`
}

type ReviewResult struct {
	WorkOrderID string `json:"work_order_id"`
}

// --- Interface ---

// ApprovalService is the transactional facade over the completion approval
// workflow. Each mutating method runs as one unit of work: the approval flip,
// the work order transition, ledger settlement, the history append and the
// notification outbox row all commit together or not at all.
type ApprovalService interface {
	SubmitCompletion(ctx context.Context, workOrderID, technicianID uuid.UUID, req SubmitCompletionRequest) (*ApprovalResponse, error)
	Approve(ctx context.Context, approvalID, approverID uuid.UUID, note string) (*ReviewResult, error)
	Reject(ctx context.Context, approvalID, approverID uuid.UUID, note string) (*ReviewResult, error)
	ListPending(ctx context.Context, approverID uuid.UUID, role string) ([]repository.PendingApprovalRow, error)
	Details(ctx context.Context, approvalID, approverID uuid.UUID) (*ApprovalDetailResponse, error)
}

type approvalService struct {
	approvalRepo  repository.ApprovalRepository
	workOrderRepo repository.WorkOrderRepository
	usageRepo     repository.UsageRepository
	userRepo      repository.UserRepository
	inventory     InventoryService
	historyRepo   repository.HistoryRepository
	notifier      NotificationService
	txManager     repository.TransactionManager
}

func NewApprovalService(
	approvalRepo repository.ApprovalRepository,
	workOrderRepo repository.WorkOrderRepository,
	usageRepo repository.UsageRepository,
	userRepo repository.UserRepository,
	inventory InventoryService,
	historyRepo repository.HistoryRepository,
	notifier NotificationService,
	txManager repository.TransactionManager,
) ApprovalService {
	return &approvalService{
		approvalRepo:  approvalRepo,
		workOrderRepo: workOrderRepo,
		usageRepo:     usageRepo,
		userRepo:      userRepo,
		inventory:     inventory,
		historyRepo:   historyRepo,
		notifier:      notifier,
		txManager:     txManager,
	}
}

// --- Implementation ---

func (s *approvalService) SubmitCompletion(ctx context.Context, workOrderID, technicianID uuid.UUID, req SubmitCompletionRequest) (*ApprovalResponse, error) {
	if strings.TrimSpace(req.Report) == "" {
		return nil, newValidationError("report", "completion report is required")
	}

	declarations, err := parseDeclarations(req.Usage)
	if err != nil {
		return nil, err
	}

	var approval *model.ServiceApproval
	var pending []*model.Notification

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wo, err := s.workOrderRepo.FindByID(txCtx, workOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("work order %s: %w", workOrderID, ErrNotFound)
			}
			return fmt.Errorf("failed to load work order: %w", err)
		}

		covered, err := s.workOrderRepo.TechnicianCovers(txCtx, workOrderID, technicianID)
		if err != nil {
			return fmt.Errorf("failed to check assignment: %w", err)
		}
		if !covered {
			return fmt.Errorf("technician has no active assignment for this work order: %w", ErrForbidden)
		}

		if wo.Status != model.StatusInProgress {
			return fmt.Errorf("cannot submit completion from %s: %w", wo.Status, ErrInvalidTransition)
		}

		// Optimistic stock check against visible quantity. There is no
		// reservation between submission and approval; the floor-at-zero
		// settlement absorbs over-declaration that slips through.
		for _, d := range declarations {
			stock, err := s.inventory.VisibleStock(txCtx, technicianID, d.itemID)
			if err != nil {
				return err
			}
			if d.usage.Quantity > stock {
				return fmt.Errorf("item %s: declared %d, have %d: %w",
					d.itemID, d.usage.Quantity, stock, ErrInventoryExceeded)
			}
		}

		now := time.Now()
		usages := make([]model.ServiceItemUsed, 0, len(declarations))
		for _, d := range declarations {
			u := d.usage
			u.ServiceRequestID = wo.ID
			u.UsedBy = technicianID
			u.UsedAt = now
			usages = append(usages, u)
		}
		if err := s.usageRepo.CreateAll(txCtx, usages); err != nil {
			return fmt.Errorf("failed to record items used: %w", err)
		}

		approval = &model.ServiceApproval{
			ServiceRequestID: wo.ID,
			Status:           model.ApprovalPending,
			TechnicianNotes:  req.Report,
			SubmittedAt:      now,
		}
		if err := s.approvalRepo.Create(txCtx, approval); err != nil {
			return fmt.Errorf("failed to create approval: %w", err)
		}

		rows, err := s.workOrderRepo.UpdateStatusFrom(txCtx, wo.ID, model.StatusInProgress, model.StatusPendingApproval,
			map[string]interface{}{
				"resolved_by": technicianID,
				"resolved_at": now,
			})
		if err != nil {
			return fmt.Errorf("failed to update work order: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("work order left in_progress concurrently: %w", ErrInvalidTransition)
		}

		entry := &model.ServiceRequestHistory{
			ServiceRequestID: wo.ID,
			PreviousStatus:   model.StatusInProgress,
			NewStatus:        model.StatusPendingApproval,
			ChangedBy:        &technicianID,
			Notes:            "Completion submitted for approval",
		}
		if err := s.historyRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}

		if n := s.submissionNotification(txCtx, wo, technicianID); n != nil {
			if err := s.notifier.Enqueue(txCtx, n); err != nil {
				return err
			}
			pending = append(pending, n)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, n := range pending {
		s.notifier.Dispatch(ctx, n)
	}

	resp := toApprovalResponse(approval)
	return &resp, nil
}

func (s *approvalService) Approve(ctx context.Context, approvalID, approverID uuid.UUID, note string) (*ReviewResult, error) {
	var workOrderID uuid.UUID
	var pending []*model.Notification

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		approval, wo, err := s.loadReviewable(txCtx, approvalID, approverID)
		if err != nil {
			return err
		}
		workOrderID = wo.ID

		approver, err := s.userRepo.FindByID(txCtx, approverID)
		if err != nil {
			return fmt.Errorf("failed to load approver: %w", err)
		}

		now := time.Now()

		// The write predicate re-checks pending status; a concurrent
		// reviewer makes this match zero rows and the loser backs out
		// without touching the ledger.
		rows, err := s.approvalRepo.MarkReviewed(txCtx, approvalID, model.ApprovalApproved, approverID, note, now)
		if err != nil {
			return fmt.Errorf("failed to update approval: %w", err)
		}
		if rows == 0 {
			return ErrAlreadyProcessed
		}

		resolution := fmt.Sprintf("Approved by %s - %s", formatRole(approver.Role), approver.FullName())
		if note != "" {
			resolution += ". " + note
		}
		woRows, err := s.workOrderRepo.UpdateStatusFrom(txCtx, wo.ID, model.StatusPendingApproval, model.StatusCompleted,
			map[string]interface{}{
				"completed_at":     now,
				"resolution_notes": resolution,
			})
		if err != nil {
			return fmt.Errorf("failed to update work order: %w", err)
		}
		if woRows == 0 {
			return ErrAlreadyProcessed
		}

		if wo.TechnicianID == nil {
			return fmt.Errorf("work order %s has no assigned technician", wo.ID)
		}

		usages, err := s.usageRepo.ListByWorkOrder(txCtx, wo.ID)
		if err != nil {
			return fmt.Errorf("failed to load items used: %w", err)
		}
		if err := s.inventory.Settle(txCtx, *wo.TechnicianID, usages); err != nil {
			return err
		}

		entry := &model.ServiceRequestHistory{
			ServiceRequestID: wo.ID,
			PreviousStatus:   model.StatusPendingApproval,
			NewStatus:        model.StatusCompleted,
			ChangedBy:        &approverID,
			Notes:            strings.TrimSpace(fmt.Sprintf("Service completion approved by %s - %s. %s", formatRole(approver.Role), approver.FullName(), note)),
		}
		if err := s.historyRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}

		message := fmt.Sprintf("Your service completion for request %s has been approved by %s.", wo.RequestNumber, approver.FullName())
		if note != "" {
			message += " Notes: " + note
		}
		n := &model.Notification{
			UserID:        *wo.TechnicianID,
			SenderID:      &approverID,
			Type:          model.NotificationServiceApproved,
			ReferenceType: "service_request",
			ReferenceID:   &wo.ID,
			Title:         "Service Completion Approved",
			Message:       message,
			Priority:      model.NotificationPriorityLow,
		}
		if err := s.notifier.Enqueue(txCtx, n); err != nil {
			return err
		}
		pending = append(pending, n)

		// keep the in-memory copy coherent for callers
		approval.Status = model.ApprovalApproved
		approval.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, n := range pending {
		s.notifier.Dispatch(ctx, n)
	}

	return &ReviewResult{WorkOrderID: workOrderID.String()}, nil
}

func (s *approvalService) Reject(ctx context.Context, approvalID, approverID uuid.UUID, note string) (*ReviewResult, error) {
	if strings.TrimSpace(note) == "" {
		return nil, newValidationError("note", "rejection reason is required")
	}

	var workOrderID uuid.UUID
	var pending []*model.Notification

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		_, wo, err := s.loadReviewable(txCtx, approvalID, approverID)
		if err != nil {
			return err
		}
		workOrderID = wo.ID

		approver, err := s.userRepo.FindByID(txCtx, approverID)
		if err != nil {
			return fmt.Errorf("failed to load approver: %w", err)
		}

		now := time.Now()
		rows, err := s.approvalRepo.MarkReviewed(txCtx, approvalID, model.ApprovalRejected, approverID, note, now)
		if err != nil {
			return fmt.Errorf("failed to update approval: %w", err)
		}
		if rows == 0 {
			return ErrAlreadyProcessed
		}

		woRows, err := s.workOrderRepo.UpdateStatusFrom(txCtx, wo.ID, model.StatusPendingApproval, model.StatusInProgress,
			map[string]interface{}{
				"completed_at": nil,
			})
		if err != nil {
			return fmt.Errorf("failed to update work order: %w", err)
		}
		if woRows == 0 {
			return ErrAlreadyProcessed
		}

		// Rejection is a pure rollback of the submission: the tentative
		// declarations are discarded and the ledger is never touched,
		// because settlement never happened.
		if err := s.usageRepo.DeleteByWorkOrder(txCtx, wo.ID); err != nil {
			return fmt.Errorf("failed to discard items used: %w", err)
		}

		entry := &model.ServiceRequestHistory{
			ServiceRequestID: wo.ID,
			PreviousStatus:   model.StatusPendingApproval,
			NewStatus:        model.StatusInProgress,
			ChangedBy:        &approverID,
			Notes:            fmt.Sprintf("Service completion rejected by %s. Reason: %s", formatRole(approver.Role), note),
		}
		if err := s.historyRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}

		if wo.TechnicianID != nil {
			n := &model.Notification{
				UserID:        *wo.TechnicianID,
				SenderID:      &approverID,
				Type:          model.NotificationRevisionRequired,
				ReferenceType: "service_request",
				ReferenceID:   &wo.ID,
				Title:         "Service Completion Rejected - Revision Required",
				Message:       fmt.Sprintf("Your service completion for request %s was rejected by %s. Please review and resubmit. Reason: %s", wo.RequestNumber, approver.FullName(), note),
				Priority:      model.NotificationPriorityHigh,
			}
			if err := s.notifier.Enqueue(txCtx, n); err != nil {
				return err
			}
			pending = append(pending, n)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, n := range pending {
		s.notifier.Dispatch(ctx, n)
	}

	return &ReviewResult{WorkOrderID: workOrderID.String()}, nil
}

func (s *approvalService) ListPending(ctx context.Context, approverID uuid.UUID, role string) ([]repository.PendingApprovalRow, error) {
	rows, err := s.approvalRepo.ListPendingForApprover(ctx, approverID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending approvals: %w", err)
	}
	return rows, nil
}

func (s *approvalService) Details(ctx context.Context, approvalID, approverID uuid.UUID) (*ApprovalDetailResponse, error) {
	approval, err := s.approvalRepo.FindByIDWithRelations(ctx, approvalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("approval %s: %w", approvalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load approval: %w", err)
	}

	reachable, err := s.userRepo.AdministersWorkOrder(ctx, approverID, approval.ServiceRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check approver scope: %w", err)
	}
	if !reachable {
		return nil, fmt.Errorf("approval %s: %w", approvalID, ErrForbidden)
	}

	usages, err := s.usageRepo.ListByWorkOrderWithItems(ctx, approval.ServiceRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items used: %w", err)
	}

	detail := &ApprovalDetailResponse{
		Approval:  toApprovalResponse(approval),
		ItemsUsed: make([]UsageRowResponse, 0, len(usages)),
	}
	if approval.ServiceRequest != nil {
		detail.WorkOrder = toWorkOrderResponse(approval.ServiceRequest)
	}
	for _, u := range usages {
		row := UsageRowResponse{
			ItemID:          u.ItemID.String(),
			Quantity:        u.Quantity,
			ConsumptionType: string(u.ConsumptionType),
		}
		if u.Item != nil {
			row.ItemName = u.Item.Name
			row.Unit = u.Item.Unit
		}
		if u.AmountConsumed.Valid {
			v := u.AmountConsumed.Decimal.String()
			row.AmountConsumed = &v
		}
		detail.ItemsUsed = append(detail.ItemsUsed, row)
	}
	return detail, nil
}

// --- internal ---

type parsedDeclaration struct {
	itemID uuid.UUID
	usage  model.ServiceItemUsed
}

func parseDeclarations(declarations []UsageDeclaration) ([]parsedDeclaration, error) {
	out := make([]parsedDeclaration, 0, len(declarations))
	for i, d := range declarations {
		itemID, err := uuid.Parse(d.ItemID)
		if err != nil {
			return nil, newValidationError(fmt.Sprintf("usage[%d].item_id", i), "invalid item id")
		}
		if d.Quantity <= 0 {
			return nil, newValidationError(fmt.Sprintf("usage[%d].quantity", i), "quantity must be positive")
		}

		ctype := model.ConsumptionType(d.ConsumptionType)
		if ctype == model.ConsumptionLegacy {
			ctype = model.ConsumptionFull
		}

		usage := model.ServiceItemUsed{
			ItemID:          itemID,
			Quantity:        d.Quantity,
			ConsumptionType: ctype,
		}
		if ctype == model.ConsumptionPartial {
			if d.AmountConsumed == nil {
				return nil, newValidationError(fmt.Sprintf("usage[%d].amount_consumed", i), "partial consumption requires an amount")
			}
			amount, err := decimal.NewFromString(*d.AmountConsumed)
			if err != nil || amount.IsNegative() {
				return nil, newValidationError(fmt.Sprintf("usage[%d].amount_consumed", i), "invalid amount")
			}
			usage.AmountConsumed = decimal.NullDecimal{Decimal: amount, Valid: true}
		}
		out = append(out, parsedDeclaration{itemID: itemID, usage: usage})
	}
	return out, nil
}

// loadReviewable fetches a pending approval plus its work order and checks
// the approver administers it. The pending status itself is enforced again
// by the write predicate; this early check just produces friendlier errors.
func (s *approvalService) loadReviewable(ctx context.Context, approvalID, approverID uuid.UUID) (*model.ServiceApproval, *model.ServiceRequest, error) {
	approval, err := s.approvalRepo.FindByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("approval %s: %w", approvalID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to load approval: %w", err)
	}
	if approval.Status != model.ApprovalPending {
		return nil, nil, ErrAlreadyProcessed
	}

	reachable, err := s.userRepo.AdministersWorkOrder(ctx, approverID, approval.ServiceRequestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check approver scope: %w", err)
	}
	if !reachable {
		return nil, nil, fmt.Errorf("approval %s: %w", approvalID, ErrForbidden)
	}

	wo, err := s.workOrderRepo.FindByID(ctx, approval.ServiceRequestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load work order: %w", err)
	}
	return approval, wo, nil
}

func (s *approvalService) submissionNotification(ctx context.Context, wo *model.ServiceRequest, technicianID uuid.UUID) *model.Notification {
	approverID := s.resolveApprover(ctx, wo)
	if approverID == nil {
		return nil
	}
	return &model.Notification{
		UserID:        *approverID,
		SenderID:      &technicianID,
		Type:          model.NotificationServiceSubmitted,
		ReferenceType: "service_request",
		ReferenceID:   &wo.ID,
		Title:         "Service Completion Awaiting Approval",
		Message:       fmt.Sprintf("A completion report for request %s has been submitted and awaits your review.", wo.RequestNumber),
		Priority:      model.NotificationPriorityLow,
	}
}

// resolveApprover picks who reviews this work order: the coordinator who
// requested it when present, otherwise the institution's admin.
func (s *approvalService) resolveApprover(ctx context.Context, wo *model.ServiceRequest) *uuid.UUID {
	if wo.RequestedBy != nil {
		return wo.RequestedBy
	}
	if wo.Institution != nil {
		return wo.Institution.AdminID
	}
	return nil
}

func formatRole(role string) string {
	words := strings.Split(strings.ReplaceAll(role, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func toApprovalResponse(a *model.ServiceApproval) ApprovalResponse {
	resp := ApprovalResponse{
		ID:              a.ID.String(),
		WorkOrderID:     a.ServiceRequestID.String(),
		Status:          string(a.Status),
		TechnicianNotes: a.TechnicianNotes,
		ApproverNotes:   a.ApproverNotes,
		SubmittedAt:     a.SubmittedAt.Format(time.RFC3339),
	}
	if a.ReviewedAt != nil {
		s := a.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &s
	}
	if a.Approver != nil {
		resp.ApproverName = a.Approver.FullName()
	}
	return resp
}
