package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))

	return conn
}

func mustCreateUser(t *testing.T, conn *gorm.DB, username string) *models.User {
	t.Helper()

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&user).Error)

	return &user
}

func mustCreateAlert(t *testing.T, conn *gorm.DB, status models.AlertStatus) *models.Alert {
	t.Helper()

	alert := models.Alert{
		Title:   "CPU usage above threshold",
		Level:   models.AlertLevelWarning,
		Status:  status,
		FiredAt: time.Now().UTC(),
	}
	require.NoError(t, conn.Create(&alert).Error)

	return &alert
}

func mustCreateIncident(t *testing.T, conn *gorm.DB, reporter *models.User, status models.IncidentStatus) *models.Incident {
	t.Helper()

	incident := models.Incident{
		Title:       "Checkout latency",
		Description: "p99 latency regression on checkout",
		Status:      status,
		Impact:      "High",
		Urgency:     "Medium",
		ReporterID:  reporter.ID,
	}
	require.NoError(t, conn.Create(&incident).Error)

	return &incident
}

func mustCreateConfirmed(t *testing.T, conn *gorm.DB, reporter *models.User) *models.ConfirmedIncident {
	t.Helper()

	incident := models.ConfirmedIncident{
		Title:      "Payment gateway outage",
		Severity:   "P2",
		ReporterID: reporter.ID,
	}
	require.NoError(t, CreateConfirmedIncident(conn, &incident, reporter.ID))

	return &incident
}

func countStatusLogs(t *testing.T, conn *gorm.DB, incidentID uint) int64 {
	t.Helper()

	var count int64
	err := conn.Model(&models.IncidentStatusLog{}).
		Where("incident_id = ?", incidentID).
		Count(&count).Error
	require.NoError(t, err)

	return count
}
