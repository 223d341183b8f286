package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/lifecycle"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/utils"
)

type CreateIncidentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Impact      string `json:"impact" binding:"required,oneof=High Medium Low"`
	Urgency     string `json:"urgency" binding:"required,oneof=High Medium Low"`
	ServiceID   *uint  `json:"service_id"`
	AssigneeID  *uint  `json:"assignee_id"`
}

type ChangeStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

type AssignIncidentRequest struct {
	AssigneeID *uint `json:"assignee_id"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type IncidentCommentRequest struct {
	Content   string `json:"content" binding:"required"`
	IsPrivate bool   `json:"is_private"`
}

func ListIncidents(ctx *gin.Context) {
	query := db.DB.Model(&models.Incident{}).Preload("Service").Preload("Assignee").Preload("Reporter")

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if assigneeID := ctx.Query("assignee_id"); assigneeID != "" {
		query = query.Where("assignee_id = ?", assigneeID)
	}
	if serviceID := ctx.Query("service_id"); serviceID != "" {
		query = query.Where("service_id = ?", serviceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	page, pageSize := parsePagination(ctx)

	var incidents []models.Incident
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

func GetIncident(ctx *gin.Context) {
	incidentID, err := utils.ParamUint(ctx, "incident_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var incident models.Incident
	err = db.DB.
		Preload("Service").
		Preload("Assignee").
		Preload("Reporter").
		Preload("Comments.User").
		First(&incident, incidentID).Error
	if err != nil {
		respondError(ctx, errs.NotFound("incident %d not found", incidentID))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"incident": incident})
}

func CreateIncident(ctx *gin.Context) {
	var req CreateIncidentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	incident := models.Incident{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.IncidentStatusNew,
		Impact:      req.Impact,
		Urgency:     req.Urgency,
		ServiceID:   req.ServiceID,
		ReporterID:  userID,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&incident).Error; err != nil {
			return err
		}

		initialLog := models.IncidentStatusLog{
			IncidentID: incident.ID,
			UserID:     userID,
			NewStatus:  string(models.IncidentStatusNew),
			Action:     "Incident created",
		}
		if err := tx.Create(&initialLog).Error; err != nil {
			return err
		}

		if req.AssigneeID != nil {
			updated, err := lifecycle.AssignIncident(tx, incident.ID, req.AssigneeID, userID)
			if err != nil {
				return err
			}
			incident = *updated
		}

		return nil
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"incident": incident})
}

func incidentAction(ctx *gin.Context, action func(tx *gorm.DB, incidentID, actorID uint) (*models.Incident, error)) {
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

	var incident *models.Incident

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		incident, err = action(tx, incidentID, userID)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"incident": incident})
}

func ChangeIncidentStatus(ctx *gin.Context) {
	var req ChangeStatusRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	incidentAction(ctx, func(tx *gorm.DB, incidentID, actorID uint) (*models.Incident, error) {
		return lifecycle.ChangeIncidentStatus(tx, incidentID, req.Status, actorID, req.Comment)
	})
}

func AssignIncident(ctx *gin.Context) {
	var req AssignIncidentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	incidentAction(ctx, func(tx *gorm.DB, incidentID, actorID uint) (*models.Incident, error) {
		return lifecycle.AssignIncident(tx, incidentID, req.AssigneeID, actorID)
	})
}

func CloseIncident(ctx *gin.Context) {
	var req ReasonRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	incidentAction(ctx, func(tx *gorm.DB, incidentID, actorID uint) (*models.Incident, error) {
		return lifecycle.CloseIncident(tx, incidentID, actorID, req.Reason)
	})
}

func ReopenIncident(ctx *gin.Context) {
	var req ReasonRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	incidentAction(ctx, func(tx *gorm.DB, incidentID, actorID uint) (*models.Incident, error) {
		return lifecycle.ReopenIncident(tx, incidentID, actorID, req.Reason)
	})
}

func CreateIncidentComment(ctx *gin.Context) {
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

	var req IncidentCommentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var incident models.Incident
	if err := db.DB.First(&incident, incidentID).Error; err != nil {
		respondError(ctx, errs.NotFound("incident %d not found", incidentID))
		return
	}

	comment := models.IncidentComment{
		IncidentID: incident.ID,
		UserID:     userID,
		Content:    req.Content,
		IsPrivate:  req.IsPrivate,
	}

	if err := db.DB.Create(&comment).Error; err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func ListIncidentStatusLogs(ctx *gin.Context) {
	incidentID, err := utils.ParamUint(ctx, "incident_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var logs []models.IncidentStatusLog
	err = db.DB.Preload("User").
		Where("incident_id = ?", incidentID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"logs": logs})
}
