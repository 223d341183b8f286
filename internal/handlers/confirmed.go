package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/lifecycle"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/services"
	"github.com/faultline-dev/faultline/internal/utils"
)

type CreateConfirmedIncidentRequest struct {
	Title            string         `json:"title" binding:"required"`
	Description      string         `json:"description"`
	Severity         string         `json:"severity" binding:"required"`
	ImpactScope      string         `json:"impact_scope"`
	AffectedServices datatypes.JSON `json:"affected_services"`
	BusinessImpact   string         `json:"business_impact"`
	CommanderID      *uint          `json:"commander_id"`
	AssigneeID       *uint          `json:"assignee_id"`
	DetectedAt       *time.Time     `json:"detected_at"`
	EmergencyChatURL string         `json:"emergency_chat_url"`
}

type ProgressRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func ListConfirmedIncidents(ctx *gin.Context) {
	query := db.DB.Model(&models.ConfirmedIncident{}).
		Preload("Commander").
		Preload("Assignee").
		Preload("Reporter")

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if severity := ctx.Query("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if code := ctx.Query("code"); code != "" {
		query = query.Where("code = ?", code)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	page, pageSize := parsePagination(ctx)

	var incidents []models.ConfirmedIncident
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&incidents).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"incidents": incidents,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func ConfirmedIncidentStatistics(ctx *gin.Context) {
	type bucket struct {
		Key   string `json:"key"`
		Count int64  `json:"count"`
	}

	var byStatus []bucket
	err := db.DB.Model(&models.ConfirmedIncident{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	var bySeverity []bucket
	err = db.DB.Model(&models.ConfirmedIncident{}).
		Select("severity AS key, COUNT(*) AS count").
		Group("severity").
		Scan(&bySeverity).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	var total, open int64
	if err := db.DB.Model(&models.ConfirmedIncident{}).Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	err = db.DB.Model(&models.ConfirmedIncident{}).
		Where("status <> ?", models.ConfirmedStatusClosed).
		Count(&open).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"total":       total,
		"open":        open,
		"by_status":   byStatus,
		"by_severity": bySeverity,
	})
}

func GetConfirmedIncident(ctx *gin.Context) {
	incidentID, err := utils.ParamUint(ctx, "incident_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var incident models.ConfirmedIncident
	err = db.DB.
		Preload("Commander").
		Preload("Assignee").
		Preload("Reporter").
		Preload("Alerts").
		First(&incident, incidentID).Error
	if err != nil {
		respondError(ctx, errs.NotFound("incident %d not found", incidentID))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"incident": incident})
}

func CreateConfirmedIncident(ctx *gin.Context) {
	var req CreateConfirmedIncidentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	incident := models.ConfirmedIncident{
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		ImpactScope:      req.ImpactScope,
		AffectedServices: req.AffectedServices,
		BusinessImpact:   req.BusinessImpact,
		CommanderID:      req.CommanderID,
		AssigneeID:       req.AssigneeID,
		ReporterID:       userID,
		DetectedAt:       req.DetectedAt,
		EmergencyChatURL: req.EmergencyChatURL,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		return lifecycle.CreateConfirmedIncident(tx, &incident, userID)
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadcastRefresh("incidents")
	ctx.JSON(http.StatusCreated, gin.H{"incident": incident})
}

func ChangeConfirmedIncidentStatus(ctx *gin.Context) {
	incidentID, err := utils.ParamUint(ctx, "incident_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ChangeStatusRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var incident *models.ConfirmedIncident

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		incident, err = lifecycle.ChangeConfirmedStatus(tx, incidentID, req.Status, userID, req.Comment)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadcastRefresh("incidents")
	ctx.JSON(http.StatusOK, gin.H{"incident": incident})
}

func AddConfirmedIncidentProgress(ctx *gin.Context) {
	incidentID, err := utils.ParamUint(ctx, "incident_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ProgressRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var entry *models.TimelineEntry

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		entry, err = lifecycle.AddProgress(tx, incidentID, userID, req.Title, req.Description)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"entry": entry})
}

func TriggerEmergencyResponse(ctx *gin.Context) {
	incidentID, err := utils.ParamUint(ctx, "incident_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var incident *models.ConfirmedIncident
	alreadySent := false

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var current models.ConfirmedIncident
		if err := tx.First(&current, incidentID).Error; err == nil {
			alreadySent = current.NotificationSent
		}

		incident, err = lifecycle.TriggerEmergencyResponse(tx, incidentID, userID)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	if !alreadySent {
		services.NotifyEmergencyResponse(incident)
	}

	ctx.JSON(http.StatusOK, gin.H{"incident": incident})
}

func GetConfirmedIncidentTimeline(ctx *gin.Context) {
	incidentID, err := utils.ParamUint(ctx, "incident_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Newest first for display; causal reconstruction reverses client-side.
	var entries []models.TimelineEntry
	err = db.DB.Preload("User").Preload("RelatedAlert").
		Where("incident_id = ?", incidentID).
		Order("timestamp DESC").
		Find(&entries).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"timeline": entries})
}
