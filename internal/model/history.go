package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceRequestHistory tracks Who, What, and When for every work order
// status transition. Rows are append-only: nothing in the system updates or
// deletes them, and each insert rides the same transaction as the transition
// it documents.
type ServiceRequestHistory struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID uuid.UUID       `gorm:"type:uuid;not null;index" json:"service_request_id"`
	PreviousStatus   WorkOrderStatus `gorm:"type:varchar(30);not null" json:"previous_status"`
	NewStatus        WorkOrderStatus `gorm:"type:varchar(30);not null" json:"new_status"`
	ChangedBy        *uuid.UUID      `gorm:"type:uuid;index" json:"changed_by"`
	Actor            *User           `gorm:"foreignKey:ChangedBy" json:"actor,omitempty"`
	Notes            string          `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
}

func (h *ServiceRequestHistory) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
