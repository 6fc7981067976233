package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConsumptionType says whether a usage declaration burns whole units or draws
// a fractional amount from an opened consumable. Legacy rows carry an empty
// value and settle like full consumption.
type ConsumptionType string

const (
	ConsumptionFull    ConsumptionType = "full"
	ConsumptionPartial ConsumptionType = "partial"
	ConsumptionLegacy  ConsumptionType = ""
)

// ServiceItemUsed declares inventory usage against one work order. Rows are
// created when the technician submits completion, deleted wholesale if the
// completion is rejected, and become the settlement input once approved.
// They are never mutated after approval.
type ServiceItemUsed struct {
	ID               uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID uuid.UUID           `gorm:"type:uuid;not null;index" json:"service_request_id"`
	ItemID           uuid.UUID           `gorm:"type:uuid;not null;index" json:"item_id"`
	Item             *PrinterItem        `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity         int                 `gorm:"type:int;not null" json:"quantity"`
	ConsumptionType  ConsumptionType     `gorm:"type:varchar(10)" json:"consumption_type"`
	AmountConsumed   decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"amount_consumed"` // ml for ink, grams for toner
	UsedBy           uuid.UUID           `gorm:"type:uuid;not null" json:"used_by"`
	UsedAt           time.Time           `gorm:"not null" json:"used_at"`
}

func (u *ServiceItemUsed) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
