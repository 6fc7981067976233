package database

import (
	log "github.com/sirupsen/logrus"

	"serviceease/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Warn("Failed to auto-migrate models: ", err)
	}

	return db, nil
}

// Migrate runs AutoMigrate for every core model. Shared with the test
// harness, which runs it against an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Institution{},
		&model.TechnicianAssignment{},
		&model.PrinterItem{},
		&model.TechnicianInventory{},
		&model.ServiceRequest{},
		&model.ServiceApproval{},
		&model.ServiceItemUsed{},
		&model.ServiceRequestHistory{},
		&model.Notification{},
	)
}
