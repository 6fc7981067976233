package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"serviceease/internal/model"
	"serviceease/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type WorkOrderResponse struct {
	ID              string  `json:"id"`
	RequestNumber   string  `json:"request_number"`
	InstitutionID   string  `json:"institution_id"`
	InstitutionName string  `json:"institution_name,omitempty"`
	Status          string  `json:"status"`
	Priority        string  `json:"priority"`
	Description     string  `json:"description"`
	Location        string  `json:"location"`
	ResolutionNotes string  `json:"resolution_notes,omitempty"`
	StartedAt       *string `json:"started_at,omitempty"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type HistoryEntryResponse struct {
	ID             string `json:"id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Notes          string `json:"notes"`
	ActorName      string `json:"actor_name,omitempty"`
	ActorRole      string `json:"actor_role,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type WorkOrderService interface {
	// Start moves a work order the technician covers into in_progress and
	// stamps started_at. Legal only from new, assigned or on_hold.
	Start(ctx context.Context, workOrderID, technicianID uuid.UUID) (*WorkOrderResponse, error)
	// Hold parks a non-terminal work order. The reason lands in history.
	Hold(ctx context.Context, workOrderID, technicianID uuid.UUID, reason string) (*WorkOrderResponse, error)
	// ReportIssue appends a history entry without changing status.
	ReportIssue(ctx context.Context, workOrderID, technicianID uuid.UUID, issueType, description string) error
	ListForTechnician(ctx context.Context, technicianID uuid.UUID, status string, page, limit int) ([]WorkOrderResponse, int64, error)
	History(ctx context.Context, workOrderID, technicianID uuid.UUID) ([]HistoryEntryResponse, error)
}

type workOrderService struct {
	workOrderRepo repository.WorkOrderRepository
	historyRepo   repository.HistoryRepository
	txManager     repository.TransactionManager
}

func NewWorkOrderService(
	workOrderRepo repository.WorkOrderRepository,
	historyRepo repository.HistoryRepository,
	txManager repository.TransactionManager,
) WorkOrderService {
	return &workOrderService{
		workOrderRepo: workOrderRepo,
		historyRepo:   historyRepo,
		txManager:     txManager,
	}
}

func (s *workOrderService) Start(ctx context.Context, workOrderID, technicianID uuid.UUID) (*WorkOrderResponse, error) {
	var result *model.ServiceRequest

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wo, err := s.loadCovered(txCtx, workOrderID, technicianID)
		if err != nil {
			return err
		}

		if !model.CanTransition(wo.Status, model.StatusInProgress) || wo.Status == model.StatusPendingApproval {
			return fmt.Errorf("cannot start from %s: %w", wo.Status, ErrInvalidTransition)
		}

		previous := wo.Status
		now := time.Now()
		wo.Status = model.StatusInProgress
		wo.TechnicianID = &technicianID
		wo.StartedAt = &now

		if err := s.workOrderRepo.Update(txCtx, wo); err != nil {
			return fmt.Errorf("failed to update work order: %w", err)
		}

		entry := &model.ServiceRequestHistory{
			ServiceRequestID: wo.ID,
			PreviousStatus:   previous,
			NewStatus:        model.StatusInProgress,
			ChangedBy:        &technicianID,
			Notes:            "Work started by technician",
		}
		if err := s.historyRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}

		result = wo
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toWorkOrderResponse(result)
	return &resp, nil
}

func (s *workOrderService) Hold(ctx context.Context, workOrderID, technicianID uuid.UUID, reason string) (*WorkOrderResponse, error) {
	var result *model.ServiceRequest

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wo, err := s.loadCovered(txCtx, workOrderID, technicianID)
		if err != nil {
			return err
		}

		// A submission under review must be approved or rejected first;
		// parking it would orphan the pending approval row.
		if wo.Status == model.StatusPendingApproval || !model.CanTransition(wo.Status, model.StatusOnHold) {
			return fmt.Errorf("cannot hold from %s: %w", wo.Status, ErrInvalidTransition)
		}

		previous := wo.Status
		wo.Status = model.StatusOnHold
		if err := s.workOrderRepo.Update(txCtx, wo); err != nil {
			return fmt.Errorf("failed to update work order: %w", err)
		}

		notes := "Put on hold by technician"
		if reason != "" {
			notes += ". Reason: " + reason
		}
		entry := &model.ServiceRequestHistory{
			ServiceRequestID: wo.ID,
			PreviousStatus:   previous,
			NewStatus:        model.StatusOnHold,
			ChangedBy:        &technicianID,
			Notes:            notes,
		}
		if err := s.historyRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}

		result = wo
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toWorkOrderResponse(result)
	return &resp, nil
}

func (s *workOrderService) ReportIssue(ctx context.Context, workOrderID, technicianID uuid.UUID, issueType, description string) error {
	if description == "" {
		return newValidationError("description", "issue description is required")
	}

	wo, err := s.loadCovered(ctx, workOrderID, technicianID)
	if err != nil {
		return err
	}

	if issueType == "" {
		issueType = "Other"
	}
	entry := &model.ServiceRequestHistory{
		ServiceRequestID: wo.ID,
		PreviousStatus:   wo.Status,
		NewStatus:        wo.Status,
		ChangedBy:        &technicianID,
		Notes:            fmt.Sprintf("ISSUE REPORT [%s]: %s", issueType, description),
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

func (s *workOrderService) ListForTechnician(ctx context.Context, technicianID uuid.UUID, status string, page, limit int) ([]WorkOrderResponse, int64, error) {
	filter := model.WorkOrderStatus(status)
	if status != "" && !filter.Valid() {
		return nil, 0, newValidationError("status", "unknown status filter")
	}

	orders, total, err := s.workOrderRepo.ListForTechnician(ctx, technicianID, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch work orders: %w", err)
	}

	res := make([]WorkOrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, toWorkOrderResponse(&orders[i]))
	}
	return res, total, nil
}

func (s *workOrderService) History(ctx context.Context, workOrderID, technicianID uuid.UUID) ([]HistoryEntryResponse, error) {
	if _, err := s.loadCovered(ctx, workOrderID, technicianID); err != nil {
		return nil, err
	}

	entries, err := s.historyRepo.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	res := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out := HistoryEntryResponse{
			ID:             e.ID.String(),
			PreviousStatus: string(e.PreviousStatus),
			NewStatus:      string(e.NewStatus),
			Notes:          e.Notes,
			CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		}
		if e.Actor != nil {
			out.ActorName = e.Actor.FullName()
			out.ActorRole = e.Actor.Role
		}
		res = append(res, out)
	}
	return res, nil
}

// loadCovered fetches a work order and verifies the technician has an active
// assignment to its institution.
func (s *workOrderService) loadCovered(ctx context.Context, workOrderID, technicianID uuid.UUID) (*model.ServiceRequest, error) {
	wo, err := s.workOrderRepo.FindByID(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("work order %s: %w", workOrderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load work order: %w", err)
	}

	covered, err := s.workOrderRepo.TechnicianCovers(ctx, workOrderID, technicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignment: %w", err)
	}
	if !covered {
		return nil, fmt.Errorf("technician has no active assignment for this work order: %w", ErrForbidden)
	}
	return wo, nil
}

// --- Helpers ---

func toWorkOrderResponse(wo *model.ServiceRequest) WorkOrderResponse {
	resp := WorkOrderResponse{
		ID:              wo.ID.String(),
		RequestNumber:   wo.RequestNumber,
		InstitutionID:   wo.InstitutionID.String(),
		Status:          string(wo.Status),
		Priority:        wo.Priority,
		Description:     wo.Description,
		Location:        wo.Location,
		ResolutionNotes: wo.ResolutionNotes,
		CreatedAt:       wo.CreatedAt.Format(time.RFC3339),
	}
	if wo.Institution != nil {
		resp.InstitutionName = wo.Institution.Name
	}
	if wo.StartedAt != nil {
		s := wo.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if wo.CompletedAt != nil {
		s := wo.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
