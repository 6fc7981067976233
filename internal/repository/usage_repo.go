package repository

import (
	"context"

	"serviceease/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsageRepository interface {
	CreateAll(ctx context.Context, usages []model.ServiceItemUsed) error
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.ServiceItemUsed, error)
	ListByWorkOrderWithItems(ctx context.Context, workOrderID uuid.UUID) ([]model.ServiceItemUsed, error)
	// DeleteByWorkOrder discards the tentative declarations after a
	// rejection; they are re-declared on resubmission.
	DeleteByWorkOrder(ctx context.Context, workOrderID uuid.UUID) error
}

type usageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) CreateAll(ctx context.Context, usages []model.ServiceItemUsed) error {
	if len(usages) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&usages).Error
}

func (r *usageRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.ServiceItemUsed, error) {
	var usages []model.ServiceItemUsed
	if err := GetDB(ctx, r.db).Where("service_request_id = ?", workOrderID).Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

func (r *usageRepository) ListByWorkOrderWithItems(ctx context.Context, workOrderID uuid.UUID) ([]model.ServiceItemUsed, error) {
	var usages []model.ServiceItemUsed
	if err := GetDB(ctx, r.db).Preload("Item").
		Where("service_request_id = ?", workOrderID).
		Order("used_at").
		Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

func (r *usageRepository) DeleteByWorkOrder(ctx context.Context, workOrderID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("service_request_id = ?", workOrderID).Delete(&model.ServiceItemUsed{}).Error
}
