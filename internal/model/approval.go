package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalStatus enum constants
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending_approval"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ServiceApproval gates a work order's transition from claimed-done to
// completed. While a work order is pending_approval exactly one of these rows
// is pending for it; approved/rejected rows are retained for audit and a
// resubmission after rejection creates a fresh row.
type ServiceApproval struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID uuid.UUID       `gorm:"type:uuid;not null;index" json:"service_request_id"`
	ServiceRequest   *ServiceRequest `gorm:"foreignKey:ServiceRequestID" json:"service_request,omitempty"`
	Status           ApprovalStatus  `gorm:"type:varchar(30);not null;default:'pending_approval';index" json:"status"`
	TechnicianNotes  string          `gorm:"type:text" json:"technician_notes"`
	ApproverNotes    string          `gorm:"type:text" json:"approver_notes"`
	ApprovedBy       *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	Approver         *User           `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	SubmittedAt      time.Time       `gorm:"not null" json:"submitted_at"`
	ReviewedAt       *time.Time      `json:"reviewed_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (a *ServiceApproval) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
