package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkOrderStatus is the closed set of service request states. Transitions
// are validated against the transition table below rather than free-form
// string comparison, so an illegal move is rejected before any write.
type WorkOrderStatus string

const (
	StatusNew             WorkOrderStatus = "new"
	StatusAssigned        WorkOrderStatus = "assigned"
	StatusInProgress      WorkOrderStatus = "in_progress"
	StatusPendingApproval WorkOrderStatus = "pending_approval"
	StatusCompleted       WorkOrderStatus = "completed"
	StatusCancelled       WorkOrderStatus = "cancelled"
	StatusOnHold          WorkOrderStatus = "on_hold"
)

// workOrderTransitions lists the legal next states for each status.
// completed and cancelled are terminal.
var workOrderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	StatusNew:             {StatusAssigned, StatusInProgress, StatusOnHold, StatusCancelled},
	StatusAssigned:        {StatusInProgress, StatusOnHold, StatusCancelled},
	StatusInProgress:      {StatusPendingApproval, StatusOnHold, StatusCancelled},
	StatusPendingApproval: {StatusCompleted, StatusInProgress, StatusOnHold, StatusCancelled},
	StatusOnHold:          {StatusAssigned, StatusInProgress, StatusCancelled},
	StatusCompleted:       {},
	StatusCancelled:       {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to WorkOrderStatus) bool {
	for _, next := range workOrderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a work order in this status can no longer change.
func (s WorkOrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s WorkOrderStatus) Valid() bool {
	_, ok := workOrderTransitions[s]
	return ok
}

// WorkOrderPriority values mirror the priority column on service requests.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ServiceRequest is a printer maintenance work order tracked from assignment
// through completion. Rows are never deleted; terminal states end the lifecycle.
type ServiceRequest struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RequestNumber   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"request_number"`
	InstitutionID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"institution_id"`
	Institution     *Institution    `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
	TechnicianID    *uuid.UUID      `gorm:"type:uuid;index" json:"technician_id"`
	Technician      *User           `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	RequestedBy     *uuid.UUID      `gorm:"type:uuid;index" json:"requested_by"`
	Status          WorkOrderStatus `gorm:"type:varchar(30);not null;default:'new';index" json:"status"`
	Priority        string          `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Description     string          `gorm:"type:text" json:"description"`
	Location        string          `gorm:"type:varchar(255)" json:"location"`
	ResolutionNotes string          `gorm:"type:text" json:"resolution_notes"`
	ResolvedBy      *uuid.UUID      `gorm:"type:uuid" json:"resolved_by"`
	ResolvedAt      *time.Time      `json:"resolved_at"`
	StartedAt       *time.Time      `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (w *ServiceRequest) BeforeCreate(_ *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
