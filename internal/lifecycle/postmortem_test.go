package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

func mustCreateActionItem(t *testing.T, conn *gorm.DB, author *models.User, incidentRef string) *models.ActionItem {
	t.Helper()

	item := models.ActionItem{
		Title:       "Add capacity alerts",
		Description: "Alert before the pool saturates",
	}
	require.NoError(t, CreateActionItem(conn, &item, incidentRef, nil, author.ID))

	return &item
}

func TestCreateActionItemBindsIncidentPostmortem(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "author")
	incident := mustCreateConfirmed(t, conn, user)

	item := mustCreateActionItem(t, conn, user, incident.Code)
	require.Equal(t, models.ActionItemStatusOpen, item.Status)
	require.Equal(t, "Technical", item.Category)
	require.Equal(t, "Medium", item.Priority)
	require.Equal(t, incident.Code, item.IncidentCode)

	var postmortem models.Postmortem
	require.NoError(t, conn.First(&postmortem, item.PostmortemID).Error)
	require.Equal(t, incident.ID, *postmortem.IncidentID)
	require.Equal(t, models.PostmortemStatusDraft, postmortem.Status)

	// A second item for the same incident reuses the postmortem.
	second := mustCreateActionItem(t, conn, user, incident.Code)
	require.Equal(t, item.PostmortemID, second.PostmortemID)

	var logs int64
	err := conn.Model(&models.ActionItemStatusLog{}).
		Where("action_item_id = ?", item.ID).
		Count(&logs).Error
	require.NoError(t, err)
	require.EqualValues(t, 1, logs)
}

func TestCreateActionItemStandalonePostmortem(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "author")

	item := mustCreateActionItem(t, conn, user, "")
	require.NotZero(t, item.PostmortemID)

	var postmortem models.Postmortem
	require.NoError(t, conn.First(&postmortem, item.PostmortemID).Error)
	require.Nil(t, postmortem.IncidentID)
}

func TestCreateActionItemValidation(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "author")

	err := CreateActionItem(conn, &models.ActionItem{Description: "d"}, "", nil, user.ID)
	require.True(t, errs.IsValidation(err))

	err = CreateActionItem(conn, &models.ActionItem{Title: "t"}, "", nil, user.ID)
	require.True(t, errs.IsValidation(err))

	err = CreateActionItem(conn, &models.ActionItem{Title: "t", Description: "d", Category: "Magic"}, "", nil, user.ID)
	require.True(t, errs.IsValidation(err))

	err = CreateActionItem(conn, &models.ActionItem{Title: "t", Description: "d"}, "F-19990101-001", nil, user.ID)
	require.True(t, errs.IsNotFound(err))
}

func TestChangeActionItemStatus(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "author")
	item := mustCreateActionItem(t, conn, user, "")

	updated, err := ChangeActionItemStatus(conn, item.ID, "Completed", user.ID, "shipped")
	require.NoError(t, err)
	require.Equal(t, models.ActionItemStatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	// Same status again is rejected and leaves no extra log.
	_, err = ChangeActionItemStatus(conn, item.ID, "Completed", user.ID, "")
	require.True(t, errs.IsValidation(err))

	_, err = ChangeActionItemStatus(conn, item.ID, "Done", user.ID, "")
	require.True(t, errs.IsValidation(err))

	updated, err = ChangeActionItemStatus(conn, item.ID, "In Progress", user.ID, "reopened")
	require.NoError(t, err)
	require.Nil(t, updated.CompletedAt)

	var logs []models.ActionItemStatusLog
	require.NoError(t, conn.Where("action_item_id = ?", item.ID).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 3)
	require.Equal(t, "Completed", logs[1].NewStatus)
	require.Equal(t, "In Progress", logs[2].NewStatus)
}

func TestAssignActionItem(t *testing.T) {
	conn := newTestDB(t)
	author := mustCreateUser(t, conn, "author")
	owner := mustCreateUser(t, conn, "owner")
	item := mustCreateActionItem(t, conn, author, "")

	_, err := AssignActionItem(conn, item.ID, 9999, author.ID, "")
	require.True(t, errs.IsNotFound(err))

	updated, err := AssignActionItem(conn, item.ID, owner.ID, author.ID, "taking this")
	require.NoError(t, err)
	require.Equal(t, owner.ID, *updated.AssigneeID)

	_, err = AssignActionItem(conn, item.ID, owner.ID, author.ID, "")
	require.True(t, errs.IsValidation(err))

	var reloaded models.ActionItem
	require.NoError(t, conn.First(&reloaded, item.ID).Error)
	require.Equal(t, owner.ID, *reloaded.AssigneeID)
}

func TestSetActionItemDueDate(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "author")
	item := mustCreateActionItem(t, conn, user, "")

	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	updated, err := SetActionItemDueDate(conn, item.ID, due, user.ID, "sprint target")
	require.NoError(t, err)
	require.True(t, updated.DueDate.Equal(due))

	_, err = SetActionItemDueDate(conn, item.ID, due, user.ID, "")
	require.True(t, errs.IsValidation(err))
}
