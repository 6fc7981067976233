package repository

import (
	"context"
	"time"

	"serviceease/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingApprovalRow is the read-side projection for the approver's queue:
// one row per pending approval with work-order and technician context.
type PendingApprovalRow struct {
	ApprovalID      uuid.UUID `json:"approval_id"`
	WorkOrderID     uuid.UUID `json:"work_order_id"`
	RequestNumber   string    `json:"request_number"`
	Description     string    `json:"description"`
	Priority        string    `json:"priority"`
	Location        string    `json:"location"`
	TechnicianName  string    `json:"technician_name"`
	InstitutionName string    `json:"institution_name"`
	TechnicianNotes string    `json:"technician_notes"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

type ApprovalRepository interface {
	Create(ctx context.Context, approval *model.ServiceApproval) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceApproval, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ServiceApproval, error)
	// MarkReviewed flips a pending approval to its terminal status. The write
	// predicate re-checks pending_approval inside the transaction: a zero row
	// count tells the caller a concurrent reviewer already settled it.
	MarkReviewed(ctx context.Context, id uuid.UUID, status model.ApprovalStatus, approverID uuid.UUID, notes string, reviewedAt time.Time) (int64, error)
	// ListPendingForApprover returns the pending queue scoped to the
	// approver: institution admins see their institutions' work orders,
	// coordinators see the work orders they requested.
	ListPendingForApprover(ctx context.Context, approverID uuid.UUID, role string) ([]PendingApprovalRow, error)
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, approval *model.ServiceApproval) error {
	return GetDB(ctx, r.db).Create(approval).Error
}

func (r *approvalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceApproval, error) {
	var approval model.ServiceApproval
	if err := GetDB(ctx, r.db).First(&approval, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ServiceApproval, error) {
	var approval model.ServiceApproval
	if err := GetDB(ctx, r.db).
		Preload("ServiceRequest").
		Preload("ServiceRequest.Institution").
		Preload("ServiceRequest.Technician").
		Preload("Approver").
		First(&approval, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status model.ApprovalStatus, approverID uuid.UUID, notes string, reviewedAt time.Time) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.ServiceApproval{}).
		Where("id = ? AND status = ?", id, model.ApprovalPending).
		Updates(map[string]interface{}{
			"status":         status,
			"approved_by":    approverID,
			"approver_notes": notes,
			"reviewed_at":    reviewedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *approvalRepository) ListPendingForApprover(ctx context.Context, approverID uuid.UUID, role string) ([]PendingApprovalRow, error) {
	query := GetDB(ctx, r.db).Model(&model.ServiceApproval{}).
		Select(`service_approvals.id AS approval_id,
			sr.id AS work_order_id,
			sr.request_number,
			sr.description,
			sr.priority,
			sr.location,
			tech.first_name || ' ' || tech.last_name AS technician_name,
			i.name AS institution_name,
			service_approvals.technician_notes,
			service_approvals.submitted_at`).
		Joins("JOIN service_requests sr ON sr.id = service_approvals.service_request_id").
		Joins("JOIN users tech ON tech.id = sr.technician_id").
		Joins("JOIN institutions i ON i.id = sr.institution_id").
		Where("service_approvals.status = ? AND sr.status = ?", model.ApprovalPending, model.StatusPendingApproval)

	switch role {
	case model.RoleCoordinator:
		query = query.Where("sr.requested_by = ?", approverID)
	default:
		query = query.Where("i.admin_id = ?", approverID)
	}

	var rows []PendingApprovalRow
	if err := query.Order("service_approvals.submitted_at DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
