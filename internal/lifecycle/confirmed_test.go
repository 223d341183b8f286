package lifecycle

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

func TestNextIncidentCodeSequence(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	first, err := NextIncidentCode(conn, now)
	require.NoError(t, err)
	require.Equal(t, "F-20250314-001", first)

	second, err := NextIncidentCode(conn, now)
	require.NoError(t, err)
	require.Equal(t, "F-20250314-002", second)

	nextDay, err := NextIncidentCode(conn, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, "F-20250315-001", nextDay)
}

func TestCreateConfirmedIncidentCodesAreDistinct(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "commander")

	seen := make(map[string]bool)

	for i := 0; i < 5; i++ {
		incident := models.ConfirmedIncident{
			Title:      fmt.Sprintf("Outage %d", i),
			Severity:   "P1",
			ReporterID: user.ID,
		}
		require.NoError(t, CreateConfirmedIncident(conn, &incident, user.ID))
		require.False(t, seen[incident.Code], "duplicate code %s", incident.Code)
		seen[incident.Code] = true
		require.Equal(t, models.ConfirmedStatusPending, incident.Status)
	}
}

func TestConcurrentIncidentCreationCodesAreDistinct(t *testing.T) {
	conn := newTestDB(t)

	// One pooled connection keeps every goroutine on the shared in-memory
	// database; the counter row still has to serialize them.
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	user := mustCreateUser(t, conn, "commander")

	const workers = 8

	var wg sync.WaitGroup
	codes := make(chan string, workers)
	failures := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			err := conn.Transaction(func(tx *gorm.DB) error {
				incident := models.ConfirmedIncident{
					Title:      fmt.Sprintf("Concurrent outage %d", i),
					Severity:   "P2",
					ReporterID: user.ID,
				}
				if err := CreateConfirmedIncident(tx, &incident, user.ID); err != nil {
					return err
				}
				codes <- incident.Code
				return nil
			})
			if err != nil {
				failures <- err
			}
		}(i)
	}

	wg.Wait()
	close(codes)
	close(failures)

	for err := range failures {
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for code := range codes {
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
	require.Len(t, seen, workers)
}

func TestCreateConfirmedIncidentValidation(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "commander")

	err := CreateConfirmedIncident(conn, &models.ConfirmedIncident{Severity: "P1", ReporterID: user.ID}, user.ID)
	require.True(t, errs.IsValidation(err))

	err = CreateConfirmedIncident(conn, &models.ConfirmedIncident{Title: "x", Severity: "P9", ReporterID: user.ID}, user.ID)
	require.True(t, errs.IsValidation(err))
}

func TestChangeConfirmedStatusFlow(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "commander")
	incident := mustCreateConfirmed(t, conn, user)

	updated, err := ChangeConfirmedStatus(conn, incident.ID, "Investigating", user.ID, "")
	require.NoError(t, err)
	require.NotNil(t, updated.AcknowledgedAt)

	_, err = ChangeConfirmedStatus(conn, incident.ID, "Recovering", user.ID, "")
	require.NoError(t, err)

	updated, err = ChangeConfirmedStatus(conn, incident.ID, "Recovered", user.ID, "")
	require.NoError(t, err)
	require.NotNil(t, updated.RecoveredAt)

	// Regression clears the recovery stamp.
	updated, err = ChangeConfirmedStatus(conn, incident.ID, "Investigating", user.ID, "it broke again")
	require.NoError(t, err)
	require.Nil(t, updated.RecoveredAt)
}

func TestChangeConfirmedStatusRejected(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "commander")
	incident := mustCreateConfirmed(t, conn, user)

	var before int64
	require.NoError(t, conn.Model(&models.TimelineEntry{}).Where("incident_id = ?", incident.ID).Count(&before).Error)

	_, err := ChangeConfirmedStatus(conn, incident.ID, "Recovered", user.ID, "")
	require.True(t, errs.IsValidation(err))

	var after int64
	require.NoError(t, conn.Model(&models.TimelineEntry{}).Where("incident_id = ?", incident.ID).Count(&after).Error)
	require.Equal(t, before, after)
}

func TestClosedConfirmedIncidentIsTerminal(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "commander")
	incident := mustCreateConfirmed(t, conn, user)

	updated, err := ChangeConfirmedStatus(conn, incident.ID, "Closed", user.ID, "false positive")
	require.NoError(t, err)
	require.NotNil(t, updated.ClosedAt)

	_, err = ChangeConfirmedStatus(conn, incident.ID, "Investigating", user.ID, "")
	require.True(t, errs.IsValidation(err))
}

func TestAddProgress(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "commander")
	incident := mustCreateConfirmed(t, conn, user)

	_, err := AddProgress(conn, incident.ID, user.ID, "", "details")
	require.True(t, errs.IsValidation(err))

	entry, err := AddProgress(conn, incident.ID, user.ID, "Mitigation applied", "Failed over to the secondary region")
	require.NoError(t, err)
	require.Equal(t, models.TimelineAction, entry.EntryType)
}

func TestTriggerEmergencyResponseIdempotentFlag(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "commander")
	incident := mustCreateConfirmed(t, conn, user)

	first, err := TriggerEmergencyResponse(conn, incident.ID, user.ID)
	require.NoError(t, err)
	require.True(t, first.NotificationSent)

	second, err := TriggerEmergencyResponse(conn, incident.ID, user.ID)
	require.NoError(t, err)
	require.True(t, second.NotificationSent)

	var entries int64
	err = conn.Model(&models.TimelineEntry{}).
		Where("incident_id = ? AND entry_type = ?", incident.ID, models.TimelineEmergencyResponse).
		Count(&entries).Error
	require.NoError(t, err)
	require.EqualValues(t, 2, entries)
}
