package repository

import (
	"context"

	"serviceease/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository is append-only: status transitions insert exactly one row
// inside the transaction that performed the transition, and nothing in this
// core ever updates or deletes history.
type HistoryRepository interface {
	Append(ctx context.Context, entry *model.ServiceRequestHistory) error
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.ServiceRequestHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *model.ServiceRequestHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *historyRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.ServiceRequestHistory, error) {
	var entries []model.ServiceRequestHistory
	if err := GetDB(ctx, r.db).Preload("Actor").
		Where("service_request_id = ?", workOrderID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
