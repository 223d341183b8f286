package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

func loadActionItem(tx *gorm.DB, actionItemID uint) (*models.ActionItem, error) {
	var item models.ActionItem

	err := tx.Preload("Assignee").First(&item, actionItemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("action item %d not found", actionItemID)
		}
		return nil, err
	}

	return &item, nil
}

// findOrCreatePostmortem returns the postmortem attached to the given
// incident, creating a Draft one when none exists yet.
func findOrCreatePostmortem(tx *gorm.DB, incident *models.ConfirmedIncident, authorID uint) (*models.Postmortem, error) {
	var postmortem models.Postmortem

	err := tx.Where("incident_id = ?", incident.ID).First(&postmortem).Error
	if err == nil {
		return &postmortem, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	postmortem = models.Postmortem{
		IncidentID: &incident.ID,
		Title:      fmt.Sprintf("Postmortem for %s", incident.Code),
		Status:     models.PostmortemStatusDraft,
		AuthorID:   authorID,
	}

	if err := tx.Create(&postmortem).Error; err != nil {
		return nil, err
	}

	return &postmortem, nil
}

// CreateActionItem persists a follow-up measure. The item always hangs off
// a postmortem: an incident reference binds (or creates) that incident's
// postmortem, an explicit postmortem id is used as-is, and otherwise a
// standalone Draft postmortem is opened for it.
func CreateActionItem(tx *gorm.DB, item *models.ActionItem, incidentRef string, postmortemID *uint, actorID uint) error {
	if item.Title == "" {
		return errs.Validation("action item title is required")
	}
	if item.Description == "" {
		return errs.Validation("action item description is required")
	}

	if item.Category == "" {
		item.Category = "Technical"
	}
	if !models.ValidActionItemCategory(item.Category) {
		return errs.Validation("invalid action item category: %s", item.Category)
	}

	if item.Priority == "" {
		item.Priority = "Medium"
	}

	item.Status = models.ActionItemStatusOpen

	switch {
	case incidentRef != "":
		incident := resolveIncidentRef(tx, incidentRef)
		if incident == nil {
			return errs.NotFound("incident %s not found", incidentRef)
		}

		postmortem, err := findOrCreatePostmortem(tx, incident, actorID)
		if err != nil {
			return err
		}

		item.PostmortemID = postmortem.ID
		item.IncidentCode = incident.Code
	case postmortemID != nil:
		var postmortem models.Postmortem
		if err := tx.First(&postmortem, *postmortemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("postmortem %d not found", *postmortemID)
			}
			return err
		}
		item.PostmortemID = postmortem.ID
	default:
		postmortem := models.Postmortem{
			Title:    "Standalone review",
			Status:   models.PostmortemStatusDraft,
			AuthorID: actorID,
		}
		if err := tx.Create(&postmortem).Error; err != nil {
			return err
		}
		item.PostmortemID = postmortem.ID
	}

	if err := tx.Create(item).Error; err != nil {
		return err
	}

	initialLog := models.ActionItemStatusLog{
		ActionItemID: item.ID,
		UserID:       actorID,
		NewStatus:    string(models.ActionItemStatusOpen),
		Action:       "Action item created",
		Comments:     fmt.Sprintf("New action item: %s", item.Title),
	}

	return tx.Create(&initialLog).Error
}

// ChangeActionItemStatus moves an action item to newStatus and logs the
// change. Completing stamps CompletedAt; leaving Completed clears it.
func ChangeActionItemStatus(tx *gorm.DB, actionItemID uint, newStatus string, actorID uint, comments string) (*models.ActionItem, error) {
	if !models.ValidActionItemStatus(newStatus) {
		return nil, errs.Validation("invalid action item status: %s", newStatus)
	}

	item, err := loadActionItem(tx, actionItemID)
	if err != nil {
		return nil, err
	}

	oldStatus := string(item.Status)
	if oldStatus == newStatus {
		return nil, errs.Validation("action item is already %s", newStatus)
	}

	item.Status = models.ActionItemStatus(newStatus)
	if item.Status == models.ActionItemStatusCompleted {
		now := time.Now().UTC()
		item.CompletedAt = &now
	} else {
		item.CompletedAt = nil
	}

	item.Assignee = nil
	if err := tx.Save(item).Error; err != nil {
		return nil, err
	}

	statusLog := models.ActionItemStatusLog{
		ActionItemID: item.ID,
		UserID:       actorID,
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
		Action:       "Status changed",
		Comments:     comments,
	}

	if err := tx.Create(&statusLog).Error; err != nil {
		return nil, err
	}

	return item, nil
}

// AssignActionItem hands the item to a new assignee and logs the handover.
func AssignActionItem(tx *gorm.DB, actionItemID, assigneeID, actorID uint, comments string) (*models.ActionItem, error) {
	item, err := loadActionItem(tx, actionItemID)
	if err != nil {
		return nil, err
	}

	if item.AssigneeID != nil && *item.AssigneeID == assigneeID {
		return nil, errs.Validation("action item is already assigned to user %d", assigneeID)
	}

	var assignee models.User
	if err := tx.First(&assignee, assigneeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("assignee %d not found", assigneeID)
		}
		return nil, err
	}

	item.Assignee = nil
	item.AssigneeID = &assignee.ID

	if err := tx.Save(item).Error; err != nil {
		return nil, err
	}

	assignLog := models.ActionItemStatusLog{
		ActionItemID: item.ID,
		UserID:       actorID,
		OldStatus:    string(item.Status),
		NewStatus:    string(item.Status),
		Action:       "Assignee changed",
		Comments:     comments,
	}

	if err := tx.Create(&assignLog).Error; err != nil {
		return nil, err
	}

	item.Assignee = &assignee
	return item, nil
}

// SetActionItemDueDate updates the deadline and logs the change.
func SetActionItemDueDate(tx *gorm.DB, actionItemID uint, due time.Time, actorID uint, comments string) (*models.ActionItem, error) {
	item, err := loadActionItem(tx, actionItemID)
	if err != nil {
		return nil, err
	}

	if item.DueDate != nil && item.DueDate.Equal(due) {
		return nil, errs.Validation("due date is unchanged")
	}

	item.Assignee = nil
	item.DueDate = &due

	if err := tx.Save(item).Error; err != nil {
		return nil, err
	}

	dueLog := models.ActionItemStatusLog{
		ActionItemID: item.ID,
		UserID:       actorID,
		OldStatus:    string(item.Status),
		NewStatus:    string(item.Status),
		Action:       "Due date set",
		Comments:     comments,
	}

	if err := tx.Create(&dueLog).Error; err != nil {
		return nil, err
	}

	return item, nil
}
