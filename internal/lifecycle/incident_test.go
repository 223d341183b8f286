package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

func TestChangeIncidentStatusAccepted(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "operator")
	incident := mustCreateIncident(t, conn, user, models.IncidentStatusNew)

	updated, err := ChangeIncidentStatus(conn, incident.ID, "In Progress", user.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.IncidentStatusInProgress, updated.Status)
	require.NotNil(t, updated.StartedAt)
	require.EqualValues(t, 1, countStatusLogs(t, conn, incident.ID))

	var log models.IncidentStatusLog
	require.NoError(t, conn.Where("incident_id = ?", incident.ID).First(&log).Error)
	require.Equal(t, "New", log.OldStatus)
	require.Equal(t, "In Progress", log.NewStatus)
	require.Equal(t, "New → In Progress", log.Comments)
}

func TestChangeIncidentStatusRejectedLeavesNoTrace(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "operator")
	incident := mustCreateIncident(t, conn, user, models.IncidentStatusClosed)

	_, err := ChangeIncidentStatus(conn, incident.ID, "In Progress", user.ID, "")
	require.True(t, errs.IsValidation(err))

	var reloaded models.Incident
	require.NoError(t, conn.First(&reloaded, incident.ID).Error)
	require.Equal(t, models.IncidentStatusClosed, reloaded.Status)
	require.EqualValues(t, 0, countStatusLogs(t, conn, incident.ID))
}

func TestChangeIncidentStatusInvalidValue(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "operator")
	incident := mustCreateIncident(t, conn, user, models.IncidentStatusNew)

	_, err := ChangeIncidentStatus(conn, incident.ID, "Escalated", user.ID, "")
	require.True(t, errs.IsValidation(err))
}

func TestChangeIncidentStatusReopenedClearsTimestamps(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "operator")
	incident := mustCreateIncident(t, conn, user, models.IncidentStatusNew)

	_, err := ChangeIncidentStatus(conn, incident.ID, "Resolved", user.ID, "")
	require.NoError(t, err)

	updated, err := ChangeIncidentStatus(conn, incident.ID, "Reopened", user.ID, "regression")
	require.NoError(t, err)
	require.Nil(t, updated.ResolvedAt)
	require.Nil(t, updated.ClosedAt)
}

func TestAssignIncidentStartsWork(t *testing.T) {
	conn := newTestDB(t)
	reporter := mustCreateUser(t, conn, "reporter")
	assignee := mustCreateUser(t, conn, "assignee")
	incident := mustCreateIncident(t, conn, reporter, models.IncidentStatusNew)

	updated, err := AssignIncident(conn, incident.ID, &assignee.ID, reporter.ID)
	require.NoError(t, err)
	require.Equal(t, models.IncidentStatusInProgress, updated.Status)
	require.NotNil(t, updated.StartedAt)
	require.Equal(t, assignee.ID, *updated.AssigneeID)

	var log models.IncidentStatusLog
	require.NoError(t, conn.Where("incident_id = ?", incident.ID).First(&log).Error)
	require.Equal(t, "Incident assigned and work started", log.Action)
}

func TestAssignIncidentInactiveUser(t *testing.T) {
	conn := newTestDB(t)
	reporter := mustCreateUser(t, conn, "reporter")
	incident := mustCreateIncident(t, conn, reporter, models.IncidentStatusNew)

	inactive := models.User{Username: "gone", Email: "gone@example.com", PasswordHash: "x", IsActive: false}
	require.NoError(t, conn.Create(&inactive).Error)

	var stored models.User
	require.NoError(t, conn.First(&stored, inactive.ID).Error)
	require.False(t, stored.IsActive)

	_, err := AssignIncident(conn, incident.ID, &inactive.ID, reporter.ID)
	require.True(t, errs.IsValidation(err))
}

func TestAssignIncidentReassignmentLog(t *testing.T) {
	conn := newTestDB(t)
	reporter := mustCreateUser(t, conn, "reporter")
	first := mustCreateUser(t, conn, "first")
	second := mustCreateUser(t, conn, "second")
	incident := mustCreateIncident(t, conn, reporter, models.IncidentStatusInProgress)

	_, err := AssignIncident(conn, incident.ID, &first.ID, reporter.ID)
	require.NoError(t, err)

	secondID := second.ID
	_, err = AssignIncident(conn, incident.ID, &secondID, reporter.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, secondID)

	var reloaded models.Incident
	require.NoError(t, conn.First(&reloaded, incident.ID).Error)
	require.NotNil(t, reloaded.AssigneeID)
	require.Equal(t, second.ID, *reloaded.AssigneeID)

	var logs []models.IncidentStatusLog
	require.NoError(t, conn.Where("incident_id = ?", incident.ID).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	require.Equal(t, "Incident assigned", logs[0].Action)
	require.Equal(t, "Incident reassigned", logs[1].Action)
}

func TestCloseIncidentInsertsResolvedHop(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "operator")
	incident := mustCreateIncident(t, conn, user, models.IncidentStatusInProgress)

	updated, err := CloseIncident(conn, incident.ID, user.ID, "fixed by rollback")
	require.NoError(t, err)
	require.Equal(t, models.IncidentStatusClosed, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.ClosedAt)

	var logs []models.IncidentStatusLog
	require.NoError(t, conn.Where("incident_id = ?", incident.ID).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	require.Equal(t, "Incident resolved", logs[0].Action)
	require.Equal(t, "Incident closed", logs[1].Action)
	require.Contains(t, logs[1].Comments, "fixed by rollback")

	_, err = CloseIncident(conn, incident.ID, user.ID, "again")
	require.True(t, errs.IsValidation(err))
}

func TestReopenIncident(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "operator")
	incident := mustCreateIncident(t, conn, user, models.IncidentStatusInProgress)

	_, err := CloseIncident(conn, incident.ID, user.ID, "done")
	require.NoError(t, err)

	_, err = ReopenIncident(conn, incident.ID, user.ID, "")
	require.True(t, errs.IsValidation(err))

	updated, err := ReopenIncident(conn, incident.ID, user.ID, "issue came back")
	require.NoError(t, err)
	require.Equal(t, models.IncidentStatusReopened, updated.Status)
	require.Nil(t, updated.ResolvedAt)
	require.Nil(t, updated.ClosedAt)
}

func TestReopenOnlyFromResolvedOrClosed(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "operator")
	incident := mustCreateIncident(t, conn, user, models.IncidentStatusNew)

	_, err := ReopenIncident(conn, incident.ID, user.ID, "nope")
	require.True(t, errs.IsValidation(err))
}
