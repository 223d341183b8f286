package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/lifecycle"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/utils"
)

func ListPostmortems(ctx *gin.Context) {
	query := db.DB.Model(&models.Postmortem{}).
		Preload("Incident").
		Preload("Author").
		Preload("Reviewer").
		Preload("ActionItems")

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	page, pageSize := parsePagination(ctx)

	var postmortems []models.Postmortem
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&postmortems).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"postmortems": postmortems,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

func PostmortemStatistics(ctx *gin.Context) {
	var totalPostmortems, pendingPublish, totalActions, completedActions, overdueActions int64

	if err := db.DB.Model(&models.Postmortem{}).Count(&totalPostmortems).Error; err != nil {
		respondError(ctx, err)
		return
	}

	err := db.DB.Model(&models.Postmortem{}).
		Where("status IN ?", []models.PostmortemStatus{models.PostmortemStatusDraft, models.PostmortemStatusInReview}).
		Count(&pendingPublish).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	if err := db.DB.Model(&models.ActionItem{}).Count(&totalActions).Error; err != nil {
		respondError(ctx, err)
		return
	}

	err = db.DB.Model(&models.ActionItem{}).
		Where("status = ?", models.ActionItemStatusCompleted).
		Count(&completedActions).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	err = db.DB.Model(&models.ActionItem{}).
		Where("due_date < ? AND status IN ?", time.Now().UTC(),
			[]models.ActionItemStatus{models.ActionItemStatusOpen, models.ActionItemStatusInProgress}).
		Count(&overdueActions).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"total_postmortems":    totalPostmortems,
		"pending_publish":      pendingPublish,
		"total_actions":        totalActions,
		"completed_actions":    completedActions,
		"overdue_action_items": overdueActions,
	})
}

func GetPostmortem(ctx *gin.Context) {
	postmortemID, err := utils.ParamUint(ctx, "postmortem_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var postmortem models.Postmortem
	err = db.DB.
		Preload("Incident").
		Preload("Author").
		Preload("Reviewer").
		Preload("ActionItems.Assignee").
		First(&postmortem, postmortemID).Error
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Postmortem not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"postmortem": postmortem})
}

func ListActionItems(ctx *gin.Context) {
	query := db.DB.Model(&models.ActionItem{}).
		Preload("Assignee").
		Preload("Postmortem")

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if postmortemID := ctx.Query("postmortem_id"); postmortemID != "" {
		query = query.Where("postmortem_id = ?", postmortemID)
	}
	if assigneeID := ctx.Query("assignee_id"); assigneeID != "" {
		query = query.Where("assignee_id = ?", assigneeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	page, pageSize := parsePagination(ctx)

	var items []models.ActionItem
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"action_items": items,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}

type ActionItemRequest struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description" binding:"required"`
	Category     string     `json:"category"`
	Priority     string     `json:"priority"`
	AssigneeID   *uint      `json:"assignee_id"`
	DueDate      *time.Time `json:"due_date"`
	ExternalLink string     `json:"external_link"`
	IncidentRef  string     `json:"incident_id"`
	PostmortemID *uint      `json:"postmortem_id"`
}

func CreateActionItem(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ActionItemRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	item := models.ActionItem{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
		AssigneeID:   req.AssigneeID,
		DueDate:      req.DueDate,
		ExternalLink: req.ExternalLink,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		return lifecycle.CreateActionItem(tx, &item, req.IncidentRef, req.PostmortemID, userID)
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"action_item": item})
}

func GetActionItem(ctx *gin.Context) {
	actionItemID, err := utils.ParamUint(ctx, "action_item_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var item models.ActionItem
	err = db.DB.
		Preload("Assignee").
		Preload("Postmortem").
		First(&item, actionItemID).Error
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Action item not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"action_item": item})
}

func ListActionItemLogs(ctx *gin.Context) {
	actionItemID, err := utils.ParamUint(ctx, "action_item_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var logs []models.ActionItemStatusLog
	err = db.DB.Preload("User").
		Where("action_item_id = ?", actionItemID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"logs": logs})
}

type ActionItemStatusRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
	Comments  string `json:"comments"`
}

func ChangeActionItemStatus(ctx *gin.Context) {
	actionItemID, err := utils.ParamUint(ctx, "action_item_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ActionItemStatusRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var item *models.ActionItem
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		item, err = lifecycle.ChangeActionItemStatus(tx, actionItemID, req.NewStatus, userID, req.Comments)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"action_item": item})
}

type ActionItemAssignRequest struct {
	AssigneeID uint   `json:"assignee_id" binding:"required"`
	Comments   string `json:"comments"`
}

func AssignActionItem(ctx *gin.Context) {
	actionItemID, err := utils.ParamUint(ctx, "action_item_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ActionItemAssignRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var item *models.ActionItem
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		item, err = lifecycle.AssignActionItem(tx, actionItemID, req.AssigneeID, userID, req.Comments)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"action_item": item})
}

type ActionItemDueDateRequest struct {
	DueDate  time.Time `json:"due_date" binding:"required"`
	Comments string    `json:"comments"`
}

func SetActionItemDueDate(ctx *gin.Context) {
	actionItemID, err := utils.ParamUint(ctx, "action_item_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ActionItemDueDateRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var item *models.ActionItem
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		item, err = lifecycle.SetActionItemDueDate(tx, actionItemID, req.DueDate, userID, req.Comments)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"action_item": item})
}
