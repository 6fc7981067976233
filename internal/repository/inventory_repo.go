package repository

import (
	"context"

	"serviceease/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository interface {
	FindForTechnicianItem(ctx context.Context, technicianID, itemID uuid.UUID) (*model.TechnicianInventory, error)
	FindForTechnicianItemForUpdate(ctx context.Context, technicianID, itemID uuid.UUID) (*model.TechnicianInventory, error)
	ListForTechnician(ctx context.Context, technicianID uuid.UUID) ([]model.TechnicianInventory, error)
	Save(ctx context.Context, row *model.TechnicianInventory) error
	FindItem(ctx context.Context, itemID uuid.UUID) (*model.PrinterItem, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) FindForTechnicianItem(ctx context.Context, technicianID, itemID uuid.UUID) (*model.TechnicianInventory, error) {
	var row model.TechnicianInventory
	if err := GetDB(ctx, r.db).
		Where("technician_id = ? AND item_id = ?", technicianID, itemID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindForTechnicianItemForUpdate reads a ledger row with a row lock, so two
// transactions settling the same (technician, item) pair serialize instead of
// both reading the same quantity and losing a deduction. SQLite locks the
// whole database on write and rejects FOR UPDATE, so the clause is postgres
// only.
func (r *inventoryRepository) FindForTechnicianItemForUpdate(ctx context.Context, technicianID, itemID uuid.UUID) (*model.TechnicianInventory, error) {
	db := GetDB(ctx, r.db)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row model.TechnicianInventory
	if err := db.
		Where("technician_id = ? AND item_id = ?", technicianID, itemID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *inventoryRepository) ListForTechnician(ctx context.Context, technicianID uuid.UUID) ([]model.TechnicianInventory, error) {
	var rows []model.TechnicianInventory
	if err := GetDB(ctx, r.db).Preload("Item").
		Where("technician_id = ?", technicianID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *inventoryRepository) Save(ctx context.Context, row *model.TechnicianInventory) error {
	return GetDB(ctx, r.db).Save(row).Error
}

func (r *inventoryRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*model.PrinterItem, error) {
	var item model.PrinterItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
