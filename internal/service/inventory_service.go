package service

import (
	"context"
	"errors"
	"fmt"

	"serviceease/internal/model"
	"serviceease/internal/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerRowResponse is the technician-facing view of one inventory row.
type LedgerRowResponse struct {
	ItemID    string  `json:"item_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Brand     string  `json:"brand"`
	Unit      string  `json:"unit"`
	Quantity  int     `json:"quantity"`
	Capacity  *string `json:"capacity,omitempty"`
	Remaining *string `json:"remaining,omitempty"`
	IsOpened  bool    `json:"is_opened"`
}

type InventoryService interface {
	ListLedger(ctx context.Context, technicianID uuid.UUID) ([]LedgerRowResponse, error)
	// VisibleStock returns the discrete quantity on hand for one item, zero
	// when the technician holds no row for it.
	VisibleStock(ctx context.Context, technicianID, itemID uuid.UUID) (int, error)
	// Settle applies every usage declaration of one work order to the
	// technician's ledger. It must run inside the approving transaction;
	// the ledger row update piggybacks on the database's row locking so two
	// concurrent approvals on the same (technician, item) serialize.
	Settle(ctx context.Context, technicianID uuid.UUID, usages []model.ServiceItemUsed) error
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
}

func NewInventoryService(inventoryRepo repository.InventoryRepository) InventoryService {
	return &inventoryService{inventoryRepo: inventoryRepo}
}

func (s *inventoryService) ListLedger(ctx context.Context, technicianID uuid.UUID) ([]LedgerRowResponse, error) {
	rows, err := s.inventoryRepo.ListForTechnician(ctx, technicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list technician inventory: %w", err)
	}

	res := make([]LedgerRowResponse, 0, len(rows))
	for _, row := range rows {
		out := LedgerRowResponse{
			ItemID:   row.ItemID.String(),
			Quantity: row.Quantity,
			IsOpened: row.IsOpened,
		}
		if row.Item != nil {
			out.Name = row.Item.Name
			out.Category = row.Item.Category
			out.Brand = row.Item.Brand
			out.Unit = row.Item.Unit
			if capacity, ok := row.Item.Capacity(); ok {
				capStr := capacity.String()
				out.Capacity = &capStr
				if rem := row.Remaining(row.Item); rem.Valid {
					remStr := rem.Decimal.String()
					out.Remaining = &remStr
				}
			}
		}
		res = append(res, out)
	}
	return res, nil
}

func (s *inventoryService) VisibleStock(ctx context.Context, technicianID, itemID uuid.UUID) (int, error) {
	row, err := s.inventoryRepo.FindForTechnicianItem(ctx, technicianID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read inventory: %w", err)
	}
	return row.Quantity, nil
}

func (s *inventoryService) Settle(ctx context.Context, technicianID uuid.UUID, usages []model.ServiceItemUsed) error {
	// Group declarations per item so each ledger row is read and written
	// exactly once per approval, with multiple rows for the same item
	// accumulating in memory first.
	byItem := make(map[uuid.UUID][]model.ServiceItemUsed)
	order := make([]uuid.UUID, 0, len(usages))
	for _, usage := range usages {
		if _, seen := byItem[usage.ItemID]; !seen {
			order = append(order, usage.ItemID)
		}
		byItem[usage.ItemID] = append(byItem[usage.ItemID], usage)
	}

	for _, itemID := range order {
		// Locked read: concurrent approvals touching the same ledger row
		// must see each other's deduction.
		row, err := s.inventoryRepo.FindForTechnicianItemForUpdate(ctx, technicianID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The technician holds no ledger row for this item; nothing
				// to deduct. The usage rows remain as the audit record.
				log.WithFields(log.Fields{
					"technician_id": technicianID,
					"item_id":       itemID,
				}).Warn("settlement skipped item with no ledger row")
				continue
			}
			return fmt.Errorf("failed to load ledger row: %w", err)
		}

		item, err := s.inventoryRepo.FindItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("failed to load catalog item: %w", err)
		}

		for _, usage := range byItem[itemID] {
			applyUsage(row, item, usage)
		}

		if err := s.inventoryRepo.Save(ctx, row); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	return nil
}

// applyUsage mutates one ledger row for one usage declaration.
//
// full: whole units consumed and discarded, quantity floored at zero and any
// open remainder discarded with them.
// partial: draw amount_consumed from the open unit (opening a fresh one at
// capacity when none is open), remainder floored at zero, quantity untouched.
// legacy rows without a consumption type deduct quantity like full.
func applyUsage(row *model.TechnicianInventory, item *model.PrinterItem, usage model.ServiceItemUsed) {
	switch usage.ConsumptionType {
	case model.ConsumptionPartial:
		if usage.AmountConsumed.Valid && item.IsConsumable() {
			row.ConsumePartial(item, usage.AmountConsumed.Decimal)
			return
		}
		// A partial declaration without an amount (or against a discrete
		// part) degrades to a full deduction rather than silently no-oping.
		row.ConsumeFull(usage.Quantity)
	case model.ConsumptionFull:
		row.ConsumeFull(usage.Quantity)
	default:
		row.ConsumeFull(usage.Quantity)
	}
}
