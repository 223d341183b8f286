package db

import (
	"github.com/faultline-dev/faultline/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	return AutoMigrate(DB)
}

// AutoMigrate creates the schema for every entity. Split out from
// MigrateDatabase so tests can migrate their own connection.
func AutoMigrate(conn *gorm.DB) error {
	entities := []interface{}{
		&models.User{},
		&models.Group{},
		&models.Role{},
		&models.Permission{},
		&models.Service{},
		&models.Alert{},
		&models.AlertComment{},
		&models.Incident{},
		&models.IncidentComment{},
		&models.IncidentStatusLog{},
		&models.ConfirmedIncident{},
		&models.TimelineEntry{},
		&models.IncidentCounter{},
		&models.Problem{},
		&models.ProblemStatusLog{},
		&models.ApprovalWorkflow{},
		&models.ApprovalStep{},
		&models.Approval{},
		&models.ApprovalLog{},
		&models.Postmortem{},
		&models.ActionItem{},
		&models.ActionItemStatusLog{},
	}

	return conn.AutoMigrate(entities...)
}
