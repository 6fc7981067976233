package repository

import (
	"context"

	"serviceease/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkOrderRepository interface {
	Create(ctx context.Context, wo *model.ServiceRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	ListForTechnician(ctx context.Context, technicianID uuid.UUID, status model.WorkOrderStatus, page, limit int) ([]model.ServiceRequest, int64, error)
	Update(ctx context.Context, wo *model.ServiceRequest) error
	// UpdateStatusFrom flips the status only when the current row still holds
	// expected, returning the number of rows matched. A zero count means a
	// concurrent writer got there first.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, expected, next model.WorkOrderStatus, fields map[string]interface{}) (int64, error)
	// TechnicianCovers reports whether an active assignment links the
	// technician to the work order's institution.
	TechnicianCovers(ctx context.Context, workOrderID, technicianID uuid.UUID) (bool, error)
}

type workOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) WorkOrderRepository {
	return &workOrderRepository{db: db}
}

func (r *workOrderRepository) Create(ctx context.Context, wo *model.ServiceRequest) error {
	return GetDB(ctx, r.db).Create(wo).Error
}

func (r *workOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	var wo model.ServiceRequest
	if err := GetDB(ctx, r.db).Preload("Institution").First(&wo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *workOrderRepository) ListForTechnician(ctx context.Context, technicianID uuid.UUID, status model.WorkOrderStatus, page, limit int) ([]model.ServiceRequest, int64, error) {
	var orders []model.ServiceRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.ServiceRequest{}).Where("technician_id = ?", technicianID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Institution").Where("technician_id = ?", technicianID)
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *workOrderRepository) Update(ctx context.Context, wo *model.ServiceRequest) error {
	return GetDB(ctx, r.db).Save(wo).Error
}

func (r *workOrderRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, expected, next model.WorkOrderStatus, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": next}
	for k, v := range fields {
		updates[k] = v
	}
	res := GetDB(ctx, r.db).Model(&model.ServiceRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *workOrderRepository) TechnicianCovers(ctx context.Context, workOrderID, technicianID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.TechnicianAssignment{}).
		Joins("JOIN service_requests sr ON sr.institution_id = technician_assignments.institution_id").
		Where("sr.id = ? AND technician_assignments.technician_id = ? AND technician_assignments.is_active = ?", workOrderID, technicianID, true).
		Count(&count).Error
	return count > 0, err
}
