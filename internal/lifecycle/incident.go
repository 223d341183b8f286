package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/statemachine"
)

func loadIncident(tx *gorm.DB, incidentID uint) (*models.Incident, error) {
	var incident models.Incident

	err := tx.Preload("Service").Preload("Assignee").Preload("Reporter").First(&incident, incidentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("incident %d not found", incidentID)
		}
		return nil, err
	}

	return &incident, nil
}

// ChangeIncidentStatus moves a legacy incident to newStatus. The transition
// is validated against the adjacency table; an accepted transition mutates
// derived timestamps and appends exactly one status log row.
func ChangeIncidentStatus(tx *gorm.DB, incidentID uint, newStatus string, actorID uint, comment string) (*models.Incident, error) {
	if !models.ValidIncidentStatus(newStatus) {
		return nil, errs.Validation("invalid status value: %s", newStatus)
	}

	incident, err := loadIncident(tx, incidentID)
	if err != nil {
		return nil, err
	}

	oldStatus := string(incident.Status)

	if !statemachine.CanTransition(statemachine.KindIncident, oldStatus, newStatus) {
		return nil, errs.Validation("invalid status transition from %s to %s", oldStatus, newStatus)
	}

	now := time.Now().UTC()
	incident.Status = models.IncidentStatus(newStatus)

	switch incident.Status {
	case models.IncidentStatusInProgress:
		if incident.StartedAt == nil {
			incident.StartedAt = &now
		}
	case models.IncidentStatusResolved:
		incident.ResolvedAt = &now
	case models.IncidentStatusClosed:
		incident.ClosedAt = &now
	case models.IncidentStatusReopened:
		incident.ResolvedAt = nil
		incident.ClosedAt = nil
	}

	if err := tx.Save(incident).Error; err != nil {
		return nil, err
	}

	if comment == "" {
		comment = fmt.Sprintf("%s → %s", oldStatus, newStatus)
	}

	statusLog := models.IncidentStatusLog{
		IncidentID: incident.ID,
		UserID:     actorID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Action:     fmt.Sprintf("Status changed to %s", newStatus),
		Comments:   comment,
	}

	if err := tx.Create(&statusLog).Error; err != nil {
		return nil, err
	}

	return incident, nil
}

// AssignIncident sets the assignee. Assigning a New incident moves it to
// In Progress as a side effect; the log entry distinguishes a first
// assignment from a reassignment.
func AssignIncident(tx *gorm.DB, incidentID uint, assigneeID *uint, actorID uint) (*models.Incident, error) {
	incident, err := loadIncident(tx, incidentID)
	if err != nil {
		return nil, err
	}

	var assignee *models.User
	if assigneeID != nil {
		var u models.User
		if err := tx.First(&u, *assigneeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.NotFound("assignee %d not found", *assigneeID)
			}
			return nil, err
		}
		if !u.IsActive {
			return nil, errs.Validation("cannot assign to inactive user")
		}
		assignee = &u
	}

	oldAssigneeID := incident.AssigneeID
	oldStatus := string(incident.Status)

	// Drop the preloaded association before Save so gorm persists the new
	// foreign key instead of re-syncing it from the stale struct.
	incident.Assignee = nil
	incident.AssigneeID = assigneeID

	assigneeName := "unassigned"
	if assignee != nil {
		assigneeName = assignee.RealName
		if assigneeName == "" {
			assigneeName = assignee.Username
		}
	}

	if incident.Status == models.IncidentStatusNew && assigneeID != nil {
		now := time.Now().UTC()
		incident.Status = models.IncidentStatusInProgress
		if incident.StartedAt == nil {
			incident.StartedAt = &now
		}

		if err := tx.Save(incident).Error; err != nil {
			return nil, err
		}

		statusLog := models.IncidentStatusLog{
			IncidentID: incident.ID,
			UserID:     actorID,
			OldStatus:  oldStatus,
			NewStatus:  string(models.IncidentStatusInProgress),
			Action:     "Incident assigned and work started",
			Comments:   fmt.Sprintf("Assigned to %s", assigneeName),
		}

		if err := tx.Create(&statusLog).Error; err != nil {
			return nil, err
		}
	} else {
		if err := tx.Save(incident).Error; err != nil {
			return nil, err
		}

		if assigneeID != nil && (oldAssigneeID == nil || *oldAssigneeID != *assigneeID) {
			action := "Incident assigned"
			comment := fmt.Sprintf("Assigned to %s", assigneeName)
			if oldAssigneeID != nil {
				action = "Incident reassigned"
				comment = fmt.Sprintf("Reassigned to %s", assigneeName)
			}

			assignLog := models.IncidentStatusLog{
				IncidentID: incident.ID,
				UserID:     actorID,
				OldStatus:  string(incident.Status),
				NewStatus:  string(incident.Status),
				Action:     action,
				Comments:   comment,
			}

			if err := tx.Create(&assignLog).Error; err != nil {
				return nil, err
			}
		}
	}

	incident.Assignee = assignee
	return incident, nil
}

// CloseIncident closes an incident, inserting the Resolved hop first when
// the incident has not been resolved yet.
func CloseIncident(tx *gorm.DB, incidentID uint, actorID uint, reason string) (*models.Incident, error) {
	incident, err := loadIncident(tx, incidentID)
	if err != nil {
		return nil, err
	}

	if incident.Status == models.IncidentStatusClosed {
		return nil, errs.Validation("incident is already closed")
	}

	if reason == "" {
		reason = "Incident closed"
	}

	now := time.Now().UTC()

	if incident.Status != models.IncidentStatusResolved {
		oldStatus := string(incident.Status)
		incident.Status = models.IncidentStatusResolved
		incident.ResolvedAt = &now

		resolvedLog := models.IncidentStatusLog{
			IncidentID: incident.ID,
			UserID:     actorID,
			OldStatus:  oldStatus,
			NewStatus:  string(models.IncidentStatusResolved),
			Action:     "Incident resolved",
			Comments:   "Resolved prior to closing",
		}

		if err := tx.Create(&resolvedLog).Error; err != nil {
			return nil, err
		}
	}

	incident.Status = models.IncidentStatusClosed
	incident.ClosedAt = &now

	if err := tx.Save(incident).Error; err != nil {
		return nil, err
	}

	closeLog := models.IncidentStatusLog{
		IncidentID: incident.ID,
		UserID:     actorID,
		OldStatus:  string(models.IncidentStatusResolved),
		NewStatus:  string(models.IncidentStatusClosed),
		Action:     "Incident closed",
		Comments:   fmt.Sprintf("Close reason: %s", reason),
	}

	if err := tx.Create(&closeLog).Error; err != nil {
		return nil, err
	}

	comment := models.IncidentComment{
		IncidentID: incident.ID,
		UserID:     actorID,
		Content:    fmt.Sprintf("Incident closed. Reason: %s", reason),
	}

	if err := tx.Create(&comment).Error; err != nil {
		return nil, err
	}

	return incident, nil
}

// ReopenIncident reopens a resolved or closed incident. The reason is
// mandatory; resolved/closed timestamps are cleared.
func ReopenIncident(tx *gorm.DB, incidentID uint, actorID uint, reason string) (*models.Incident, error) {
	if reason == "" {
		return nil, errs.Validation("reopen reason is required")
	}

	incident, err := loadIncident(tx, incidentID)
	if err != nil {
		return nil, err
	}

	if incident.Status != models.IncidentStatusResolved && incident.Status != models.IncidentStatusClosed {
		return nil, errs.Validation("only resolved or closed incidents can be reopened")
	}

	oldStatus := string(incident.Status)
	incident.Status = models.IncidentStatusReopened
	incident.ResolvedAt = nil
	incident.ClosedAt = nil

	if err := tx.Save(incident).Error; err != nil {
		return nil, err
	}

	reopenLog := models.IncidentStatusLog{
		IncidentID: incident.ID,
		UserID:     actorID,
		OldStatus:  oldStatus,
		NewStatus:  string(models.IncidentStatusReopened),
		Action:     "Incident reopened",
		Comments:   fmt.Sprintf("Reopen reason: %s", reason),
	}

	if err := tx.Create(&reopenLog).Error; err != nil {
		return nil, err
	}

	comment := models.IncidentComment{
		IncidentID: incident.ID,
		UserID:     actorID,
		Content:    fmt.Sprintf("Incident reopened. Reason: %s", reason),
	}

	if err := tx.Create(&comment).Error; err != nil {
		return nil, err
	}

	return incident, nil
}
