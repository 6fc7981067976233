package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PrinterItem is a catalog entry for a spare part or consumable. Capacity for
// partially-consumable items lives here: InkVolume (ml) for ink bottles,
// TonerWeight (g) for toner cartridges. At most one of the two is set; plain
// discrete parts (rollers, fusers) have neither.
type PrinterItem struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string              `gorm:"type:varchar(255);not null" json:"name"`
	Category    string              `gorm:"type:varchar(100);index" json:"category"`
	Brand       string              `gorm:"type:varchar(100)" json:"brand"`
	Unit        string              `gorm:"type:varchar(30)" json:"unit"`
	InkVolume   decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"ink_volume"`
	TonerWeight decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"toner_weight"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (p *PrinterItem) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsConsumable reports whether the item tracks a fractional remainder when
// opened (ink by volume or toner by weight).
func (p *PrinterItem) IsConsumable() bool {
	return p.InkVolume.Valid || p.TonerWeight.Valid
}

// Capacity returns the full-unit capacity for a consumable item, and false
// for discrete parts.
func (p *PrinterItem) Capacity() (decimal.Decimal, bool) {
	if p.InkVolume.Valid {
		return p.InkVolume.Decimal, true
	}
	if p.TonerWeight.Valid {
		return p.TonerWeight.Decimal, true
	}
	return decimal.Zero, false
}

// TechnicianInventory is one ledger row: the stock a technician carries for a
// single catalog item. Quantity counts sealed full units on hand. For
// consumables, RemainingVolume or RemainingWeight holds the unconsumed amount
// inside the one currently open unit; both are null while nothing is open.
//
// Invariants held after every settlement: Quantity >= 0, remaining in
// [0, capacity], IsOpened false implies remaining null. Only approval
// settlement mutates these fields.
type TechnicianInventory struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	TechnicianID    uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_tech_item" json:"technician_id"`
	ItemID          uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_tech_item" json:"item_id"`
	Item            *PrinterItem        `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity        int                 `gorm:"type:int;not null;default:0" json:"quantity"`
	RemainingVolume decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"remaining_volume"`
	RemainingWeight decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"remaining_weight"`
	IsOpened        bool                `gorm:"not null;default:false" json:"is_opened"`
	AssignedBy      *uuid.UUID          `gorm:"type:uuid" json:"assigned_by"`
	AssignedAt      *time.Time          `json:"assigned_at"`
	LastUpdated     time.Time           `gorm:"autoUpdateTime" json:"last_updated"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (t *TechnicianInventory) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Remaining returns the open-unit remainder for the given item's measure.
func (t *TechnicianInventory) Remaining(item *PrinterItem) decimal.NullDecimal {
	if item.InkVolume.Valid {
		return t.RemainingVolume
	}
	return t.RemainingWeight
}

func (t *TechnicianInventory) setRemaining(item *PrinterItem, v decimal.NullDecimal) {
	if item.InkVolume.Valid {
		t.RemainingVolume = v
		return
	}
	t.RemainingWeight = v
}

// ConsumeFull discards n whole units: quantity floors at zero and any open
// remainder is discarded with the used units.
func (t *TechnicianInventory) ConsumeFull(n int) {
	t.Quantity -= n
	if t.Quantity < 0 {
		t.Quantity = 0
	}
	t.RemainingVolume = decimal.NullDecimal{}
	t.RemainingWeight = decimal.NullDecimal{}
	t.IsOpened = false
}

// ConsumePartial draws amount from the currently open unit, first opening a
// fresh one at full capacity when nothing is open. The remainder floors at
// zero and the discrete quantity is untouched: a technician does not lose a
// whole cartridge for printing one page's worth.
func (t *TechnicianInventory) ConsumePartial(item *PrinterItem, amount decimal.Decimal) {
	capacity, ok := item.Capacity()
	if !ok {
		return
	}
	current := capacity
	if rem := t.Remaining(item); t.IsOpened && rem.Valid {
		current = rem.Decimal
	}
	left := current.Sub(amount)
	if left.IsNegative() {
		left = decimal.Zero
	}
	t.setRemaining(item, decimal.NullDecimal{Decimal: left, Valid: true})
	t.IsOpened = true
}
