package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/statemachine"
)

func loadConfirmedIncident(tx *gorm.DB, incidentID uint) (*models.ConfirmedIncident, error) {
	var incident models.ConfirmedIncident

	err := tx.Preload("Commander").Preload("Assignee").Preload("Reporter").First(&incident, incidentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("incident %d not found", incidentID)
		}
		return nil, err
	}

	return &incident, nil
}

// NextIncidentCode allocates the next F-YYYYMMDD-NNN code for the given
// day. The per-day counter row is incremented inside the caller's
// transaction, so the row lock serializes concurrent creations; the unique
// index on the code column is the backstop.
func NextIncidentCode(tx *gorm.DB, now time.Time) (string, error) {
	day := now.Format("20060102")

	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.IncidentCounter{Day: day}).Error
	if err != nil {
		return "", err
	}

	err = tx.Model(&models.IncidentCounter{}).
		Where("day = ?", day).
		UpdateColumn("count", gorm.Expr("count + 1")).Error
	if err != nil {
		return "", err
	}

	var counter models.IncidentCounter
	if err := tx.Where("day = ?", day).First(&counter).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("F-%s-%03d", day, counter.Count), nil
}

// CreateConfirmedIncident persists a new confirmed incident with a freshly
// allocated code and an initial timeline entry.
func CreateConfirmedIncident(tx *gorm.DB, incident *models.ConfirmedIncident, actorID uint) error {
	if incident.Title == "" {
		return errs.Validation("title is required")
	}

	if !models.ValidSeverity(incident.Severity) {
		return errs.Validation("invalid severity value: %s", incident.Severity)
	}

	now := time.Now().UTC()

	code, err := NextIncidentCode(tx, now)
	if err != nil {
		return err
	}

	incident.Code = code
	incident.Status = models.ConfirmedStatusPending

	if err := tx.Create(incident).Error; err != nil {
		return err
	}

	entry := models.TimelineEntry{
		IncidentID:  incident.ID,
		UserID:      actorID,
		EntryType:   models.TimelineAction,
		Title:       "Incident created",
		Description: fmt.Sprintf("Incident %s created with severity %s", incident.Code, incident.Severity),
		Timestamp:   now,
	}

	return tx.Create(&entry).Error
}

// ChangeConfirmedStatus moves a confirmed incident to newStatus. Accepted
// transitions stamp the matching timestamp and append a status_change
// timeline entry; regressing to Investigating clears the recovery stamp.
func ChangeConfirmedStatus(tx *gorm.DB, incidentID uint, newStatus string, actorID uint, comment string) (*models.ConfirmedIncident, error) {
	if !models.ValidConfirmedStatus(newStatus) {
		return nil, errs.Validation("invalid status value: %s", newStatus)
	}

	incident, err := loadConfirmedIncident(tx, incidentID)
	if err != nil {
		return nil, err
	}

	oldStatus := string(incident.Status)

	if !statemachine.CanTransition(statemachine.KindConfirmedIncident, oldStatus, newStatus) {
		return nil, errs.Validation("invalid status transition from %s to %s", oldStatus, newStatus)
	}

	now := time.Now().UTC()
	incident.Status = models.ConfirmedStatus(newStatus)

	switch incident.Status {
	case models.ConfirmedStatusInvestigating:
		if incident.AcknowledgedAt == nil {
			incident.AcknowledgedAt = &now
		}
		incident.RecoveredAt = nil
	case models.ConfirmedStatusRecovered:
		incident.RecoveredAt = &now
	case models.ConfirmedStatusClosed:
		incident.ClosedAt = &now
	}

	if err := tx.Save(incident).Error; err != nil {
		return nil, err
	}

	description := comment
	if description == "" {
		description = fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus)
	}

	entry := models.TimelineEntry{
		IncidentID:  incident.ID,
		UserID:      actorID,
		EntryType:   models.TimelineStatusChange,
		Title:       fmt.Sprintf("%s → %s", oldStatus, newStatus),
		Description: description,
		Timestamp:   now,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	return incident, nil
}

// AddProgress appends an action entry to the incident timeline.
func AddProgress(tx *gorm.DB, incidentID uint, actorID uint, title, description string) (*models.TimelineEntry, error) {
	if title == "" || description == "" {
		return nil, errs.Validation("progress title and description are required")
	}

	if _, err := loadConfirmedIncident(tx, incidentID); err != nil {
		return nil, err
	}

	entry := models.TimelineEntry{
		IncidentID:  incidentID,
		UserID:      actorID,
		EntryType:   models.TimelineAction,
		Title:       title,
		Description: description,
		Timestamp:   time.Now().UTC(),
	}

	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	return &entry, nil
}

// TriggerEmergencyResponse flips the notification flag and records the
// activation on the timeline. Repeat calls only append the timeline entry;
// actual paging is the notification dispatcher's job, outside this tx.
func TriggerEmergencyResponse(tx *gorm.DB, incidentID uint, actorID uint) (*models.ConfirmedIncident, error) {
	incident, err := loadConfirmedIncident(tx, incidentID)
	if err != nil {
		return nil, err
	}

	incident.NotificationSent = true

	if err := tx.Save(incident).Error; err != nil {
		return nil, err
	}

	entry := models.TimelineEntry{
		IncidentID:  incident.ID,
		UserID:      actorID,
		EntryType:   models.TimelineEmergencyResponse,
		Title:       "Emergency response triggered",
		Description: "Emergency response activated; responders are being notified",
		Timestamp:   time.Now().UTC(),
	}

	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	return incident, nil
}
