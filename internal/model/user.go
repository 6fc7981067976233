package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role constants
const (
	RoleAdmin            = "admin"
	RoleTechnician       = "technician"
	RoleCoordinator      = "coordinator"
	RoleInstitutionAdmin = "institution_admin"
)

// User represents the central user entity for logic and database structure
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	FirstName string         `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string         `gorm:"type:varchar(100);not null" json:"last_name"`
	Role      string         `gorm:"type:varchar(50);not null" json:"role"` // admin, technician, coordinator, institution_admin
	Phone     string         `gorm:"type:varchar(20)" json:"phone"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FullName joins the user's first and last names for display and attribution.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Institution is a client site whose printers are serviced. The admin user
// referenced here is the approver for work orders raised at the institution.
type Institution struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(255);not null" json:"name"`
	Type      string     `gorm:"type:varchar(50)" json:"type"`
	Address   string     `gorm:"type:text" json:"address"`
	AdminID   *uuid.UUID `gorm:"type:uuid;index" json:"admin_id"`
	Admin     *User      `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (i *Institution) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TechnicianAssignment links a technician to an institution they cover.
// Inactive rows are kept for history but grant no access.
type TechnicianAssignment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TechnicianID  uuid.UUID `gorm:"type:uuid;not null;index" json:"technician_id"`
	InstitutionID uuid.UUID `gorm:"type:uuid;not null;index" json:"institution_id"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	AssignedAt    time.Time `gorm:"autoCreateTime" json:"assigned_at"`
}

func (t *TechnicianAssignment) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
