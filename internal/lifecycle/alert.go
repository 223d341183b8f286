// Package lifecycle implements the state-machine operations for alerts,
// incidents, and problems. Every function takes the transaction it must run
// inside; callers own commit and rollback, so an error return always leaves
// the store untouched.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

// Alert state guards are ad hoc per operation rather than table-driven:
// the alert lifecycle has too few states to justify an adjacency table.

func loadAlert(tx *gorm.DB, alertID uint) (*models.Alert, error) {
	var alert models.Alert

	err := tx.Preload("Service").Preload("AcknowledgedUser").First(&alert, alertID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("alert %d not found", alertID)
		}
		return nil, err
	}

	return &alert, nil
}

// AcknowledgeAlert marks a New alert as acknowledged by the actor.
func AcknowledgeAlert(tx *gorm.DB, alertID, actorID uint) (*models.Alert, error) {
	alert, err := loadAlert(tx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status != models.AlertStatusNew {
		return nil, errs.Validation("alert is already acknowledged or processed")
	}

	now := time.Now().UTC()
	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedBy = &actorID
	alert.AcknowledgedAt = &now

	if err := tx.Save(alert).Error; err != nil {
		return nil, err
	}

	return alert, nil
}

// IgnoreAlert drops an alert from triage. Alerts already linked to an
// incident or already ignored cannot be ignored.
func IgnoreAlert(tx *gorm.DB, alertID uint) (*models.Alert, error) {
	alert, err := loadAlert(tx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status == models.AlertStatusLinked || alert.Status == models.AlertStatusIgnored {
		return nil, errs.Validation("alert is already processed")
	}

	alert.Status = models.AlertStatusIgnored

	if err := tx.Save(alert).Error; err != nil {
		return nil, err
	}

	return alert, nil
}

// ResolveAlert stamps the resolution time. The operation is idempotent and
// deliberately carries no status guard: a resolved alert may still be
// acknowledged, linked, or ignored afterwards.
func ResolveAlert(tx *gorm.DB, alertID uint) (*models.Alert, error) {
	alert, err := loadAlert(tx, alertID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	alert.ResolvedAt = &now

	if err := tx.Save(alert).Error; err != nil {
		return nil, err
	}

	return alert, nil
}

// LinkAlertToIncident attaches the alert to a confirmed incident and records
// an alert_linked entry on the incident's timeline. Linking is allowed from
// any non-terminal alert state; Ignored is terminal.
func LinkAlertToIncident(tx *gorm.DB, alertID, incidentID, actorID uint) (*models.Alert, error) {
	alert, err := loadAlert(tx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status == models.AlertStatusIgnored {
		return nil, errs.Validation("ignored alerts cannot be linked")
	}

	var incident models.ConfirmedIncident
	if err := tx.First(&incident, incidentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("incident %d not found", incidentID)
		}
		return nil, err
	}

	alert.Status = models.AlertStatusLinked
	alert.IncidentID = &incident.ID

	if err := tx.Save(alert).Error; err != nil {
		return nil, err
	}

	entry := models.TimelineEntry{
		IncidentID:     incident.ID,
		UserID:         actorID,
		EntryType:      models.TimelineAlertLinked,
		Title:          fmt.Sprintf("Alert linked: %s", alert.Title),
		Description:    fmt.Sprintf("Alert %d (%s) linked to this incident", alert.ID, alert.Level),
		Timestamp:      time.Now().UTC(),
		RelatedAlertID: &alert.ID,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	return alert, nil
}
