package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/lifecycle"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/utils"
)

type CreateAlertRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	AlertSource string `json:"alert_source"`
	AlertRule   string `json:"alert_rule"`
	Level       string `json:"level" binding:"required"`
	MetricName  string `json:"metric_name"`
	MetricValue string `json:"metric_value"`
	Threshold   string `json:"threshold"`
	Host        string `json:"host"`
	Environment string `json:"environment"`
	ServiceID   *uint  `json:"service_id"`
	FiredAt     string `json:"fired_at"`
}

type LinkAlertRequest struct {
	IncidentID uint `json:"incident_id" binding:"required"`
}

type AlertCommentRequest struct {
	Content   string `json:"content" binding:"required"`
	IsPrivate bool   `json:"is_private"`
}

type BatchAlertRequest struct {
	AlertIDs []uint `json:"alert_ids" binding:"required,min=1"`
	Action   string `json:"action" binding:"required,oneof=acknowledge ignore resolve"`
}

func parsePagination(ctx *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	return page, pageSize
}

func ListAlerts(ctx *gin.Context) {
	query := db.DB.Model(&models.Alert{}).Preload("Service").Preload("AcknowledgedUser")

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if level := ctx.Query("level"); level != "" {
		query = query.Where("level = ?", level)
	}
	if serviceID := ctx.Query("service_id"); serviceID != "" {
		query = query.Where("service_id = ?", serviceID)
	}
	if environment := ctx.Query("environment"); environment != "" {
		query = query.Where("environment = ?", environment)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	page, pageSize := parsePagination(ctx)

	var alerts []models.Alert
	err := query.Order("fired_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&alerts).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"alerts":    alerts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func GetAlert(ctx *gin.Context) {
	alertID, err := utils.ParamUint(ctx, "alert_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var alert models.Alert
	err = db.DB.
		Preload("Service").
		Preload("Incident").
		Preload("AcknowledgedUser").
		Preload("Comments.User").
		First(&alert, alertID).Error
	if err != nil {
		respondError(ctx, errs.NotFound("alert %d not found", alertID))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"alert": alert})
}

func CreateAlert(ctx *gin.Context) {
	var req CreateAlertRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !models.ValidAlertLevel(req.Level) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert level"})
		return
	}

	firedAt := time.Now().UTC()
	if req.FiredAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.FiredAt)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "fired_at must be RFC3339"})
			return
		}
		firedAt = parsed
	}

	alert := models.Alert{
		Title:       req.Title,
		Description: req.Description,
		AlertSource: req.AlertSource,
		AlertRule:   req.AlertRule,
		Level:       models.AlertLevel(req.Level),
		Status:      models.AlertStatusNew,
		MetricName:  req.MetricName,
		MetricValue: req.MetricValue,
		Threshold:   req.Threshold,
		Host:        req.Host,
		Environment: req.Environment,
		ServiceID:   req.ServiceID,
		FiredAt:     firedAt,
	}

	if err := db.DB.Create(&alert).Error; err != nil {
		respondError(ctx, err)
		return
	}

	BroadcastRefresh("alerts")
	ctx.JSON(http.StatusCreated, gin.H{"alert": alert})
}

func alertAction(ctx *gin.Context, action func(tx *gorm.DB, alertID, actorID uint) (*models.Alert, error)) {
	alertID, err := utils.ParamUint(ctx, "alert_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var alert *models.Alert

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		alert, err = action(tx, alertID, userID)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadcastRefresh("alerts")
	ctx.JSON(http.StatusOK, gin.H{"alert": alert})
}

func AcknowledgeAlert(ctx *gin.Context) {
	alertAction(ctx, lifecycle.AcknowledgeAlert)
}

func IgnoreAlert(ctx *gin.Context) {
	alertAction(ctx, func(tx *gorm.DB, alertID, _ uint) (*models.Alert, error) {
		return lifecycle.IgnoreAlert(tx, alertID)
	})
}

func ResolveAlert(ctx *gin.Context) {
	alertAction(ctx, func(tx *gorm.DB, alertID, _ uint) (*models.Alert, error) {
		return lifecycle.ResolveAlert(tx, alertID)
	})
}

func LinkAlert(ctx *gin.Context) {
	var req LinkAlertRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	alertAction(ctx, func(tx *gorm.DB, alertID, actorID uint) (*models.Alert, error) {
		return lifecycle.LinkAlertToIncident(tx, alertID, req.IncidentID, actorID)
	})
}

func CreateAlertComment(ctx *gin.Context) {
	alertID, err := utils.ParamUint(ctx, "alert_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req AlertCommentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var alert models.Alert
	if err := db.DB.First(&alert, alertID).Error; err != nil {
		respondError(ctx, errs.NotFound("alert %d not found", alertID))
		return
	}

	comment := models.AlertComment{
		AlertID:   alert.ID,
		UserID:    userID,
		Content:   req.Content,
		IsPrivate: req.IsPrivate,
	}

	if err := db.DB.Create(&comment).Error; err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func ListAlertComments(ctx *gin.Context) {
	alertID, err := utils.ParamUint(ctx, "alert_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var comments []models.AlertComment
	err = db.DB.Preload("User").
		Where("alert_id = ?", alertID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"comments": comments})
}

// BatchUpdateAlerts applies one triage action to many alerts atomically.
// Any single failure rolls back the whole batch.
func BatchUpdateAlerts(ctx *gin.Context) {
	var req BatchAlertRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		for _, alertID := range req.AlertIDs {
			var actionErr error

			switch req.Action {
			case "acknowledge":
				_, actionErr = lifecycle.AcknowledgeAlert(tx, alertID, userID)
			case "ignore":
				_, actionErr = lifecycle.IgnoreAlert(tx, alertID)
			case "resolve":
				_, actionErr = lifecycle.ResolveAlert(tx, alertID)
			}

			if actionErr != nil {
				return actionErr
			}
		}
		return nil
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadcastRefresh("alerts")
	ctx.JSON(http.StatusOK, gin.H{"updated": len(req.AlertIDs)})
}

func AlertStatistics(ctx *gin.Context) {
	type bucket struct {
		Key   string `json:"key"`
		Count int64  `json:"count"`
	}

	var byStatus []bucket
	err := db.DB.Model(&models.Alert{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	var byLevel []bucket
	err = db.DB.Model(&models.Alert{}).
		Select("level AS key, COUNT(*) AS count").
		Group("level").
		Scan(&byLevel).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	var total, last24h int64
	if err := db.DB.Model(&models.Alert{}).Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	err = db.DB.Model(&models.Alert{}).
		Where("fired_at >= ?", since).
		Count(&last24h).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"total":     total,
		"last_24h":  last24h,
		"by_status": byStatus,
		"by_level":  byLevel,
	})
}
