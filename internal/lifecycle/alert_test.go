package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

func TestAcknowledgeAlert(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "oncall")
	alert := mustCreateAlert(t, conn, models.AlertStatusNew)

	updated, err := AcknowledgeAlert(conn, alert.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, models.AlertStatusAcknowledged, updated.Status)
	require.NotNil(t, updated.AcknowledgedAt)
	require.Equal(t, user.ID, *updated.AcknowledgedBy)

	_, err = AcknowledgeAlert(conn, alert.ID, user.ID)
	require.True(t, errs.IsValidation(err))
}

func TestAcknowledgeAlertNotFound(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "oncall")

	_, err := AcknowledgeAlert(conn, 9999, user.ID)
	require.True(t, errs.IsNotFound(err))
}

func TestIgnoreAlertGuards(t *testing.T) {
	conn := newTestDB(t)

	fresh := mustCreateAlert(t, conn, models.AlertStatusNew)
	updated, err := IgnoreAlert(conn, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, models.AlertStatusIgnored, updated.Status)

	_, err = IgnoreAlert(conn, fresh.ID)
	require.True(t, errs.IsValidation(err))

	linked := mustCreateAlert(t, conn, models.AlertStatusLinked)
	_, err = IgnoreAlert(conn, linked.ID)
	require.True(t, errs.IsValidation(err))
}

func TestResolveAlertIdempotent(t *testing.T) {
	conn := newTestDB(t)
	alert := mustCreateAlert(t, conn, models.AlertStatusAcknowledged)

	first, err := ResolveAlert(conn, alert.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ResolvedAt)

	second, err := ResolveAlert(conn, alert.ID)
	require.NoError(t, err)
	require.NotNil(t, second.ResolvedAt)
	require.Equal(t, models.AlertStatusAcknowledged, second.Status)
}

func TestLinkAlertToIncident(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "oncall")
	incident := mustCreateConfirmed(t, conn, user)
	alert := mustCreateAlert(t, conn, models.AlertStatusNew)

	updated, err := LinkAlertToIncident(conn, alert.ID, incident.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, models.AlertStatusLinked, updated.Status)
	require.Equal(t, incident.ID, *updated.IncidentID)

	var entries []models.TimelineEntry
	err = conn.Where("incident_id = ? AND entry_type = ?", incident.ID, models.TimelineAlertLinked).
		Find(&entries).Error
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, alert.ID, *entries[0].RelatedAlertID)
}

func TestLinkAlertMissingIncident(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "oncall")
	alert := mustCreateAlert(t, conn, models.AlertStatusNew)

	_, err := LinkAlertToIncident(conn, alert.ID, 4242, user.ID)
	require.True(t, errs.IsNotFound(err))

	var reloaded models.Alert
	require.NoError(t, conn.First(&reloaded, alert.ID).Error)
	require.Equal(t, models.AlertStatusNew, reloaded.Status)
}

func TestLinkIgnoredAlert(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "oncall")
	incident := mustCreateConfirmed(t, conn, user)
	alert := mustCreateAlert(t, conn, models.AlertStatusIgnored)

	_, err := LinkAlertToIncident(conn, alert.ID, incident.ID, user.ID)
	require.True(t, errs.IsValidation(err))
}
