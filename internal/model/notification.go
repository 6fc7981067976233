package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types emitted by the approval workflow
const (
	NotificationServiceApproved  = "service_approved"
	NotificationRevisionRequired = "service_revision_requested"
	NotificationServiceSubmitted = "service_submitted"
)

// Notification priorities
const (
	NotificationPriorityLow  = "low"
	NotificationPriorityHigh = "high"
)

// Notification is a durable outbox row. It is written inside the same
// transaction as the state change it announces; email and websocket delivery
// run after commit so a delivery failure can never roll back an approval.
type Notification struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SenderID      *uuid.UUID `gorm:"type:uuid" json:"sender_id"`
	Type          string     `gorm:"type:varchar(50);not null;index" json:"type"`
	ReferenceType string     `gorm:"type:varchar(50)" json:"reference_type"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid" json:"reference_id"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Message       string     `gorm:"type:text;not null" json:"message"`
	Priority      string     `gorm:"type:varchar(20);not null;default:'low'" json:"priority"`
	IsRead        bool       `gorm:"not null;default:false" json:"is_read"`
	DispatchedAt  *time.Time `json:"dispatched_at"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
