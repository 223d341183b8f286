package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/approval"
	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/lifecycle"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/services"
	"github.com/faultline-dev/faultline/internal/utils"
)

type CreateProblemRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	IncidentRef string `json:"incident_ref"`
}

type UpdateProblemRequest struct {
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	Priority          *string `json:"priority"`
	RootCauseAnalysis *string `json:"root_cause_analysis"`
	Solution          *string `json:"solution"`
	Status            *string `json:"status"`
	IncidentRef       *string `json:"incident_ref"`
	Comments          string  `json:"comments"`
}

type RequestApprovalRequest struct {
	WorkflowID uint `json:"workflow_id" binding:"required"`
}

func ListProblems(ctx *gin.Context) {
	query := db.DB.Model(&models.Problem{}).Preload("Incidents")

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := ctx.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	page, pageSize := parsePagination(ctx)

	var problems []models.Problem
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&problems).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"problems":  problems,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func GetProblem(ctx *gin.Context) {
	problemID, err := utils.ParamUint(ctx, "problem_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var problem models.Problem
	err = db.DB.Preload("Incidents").First(&problem, problemID).Error
	if err != nil {
		respondError(ctx, errs.NotFound("problem %d not found", problemID))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"problem": problem})
}

func ListProblemStatusLogs(ctx *gin.Context) {
	problemID, err := utils.ParamUint(ctx, "problem_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var logs []models.ProblemStatusLog
	err = db.DB.Preload("User").
		Where("problem_id = ?", problemID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"logs": logs})
}

func CreateProblem(ctx *gin.Context) {
	var req CreateProblemRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	problem := models.Problem{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		return lifecycle.CreateProblem(tx, &problem, req.IncidentRef, userID)
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"problem": problem})
}

func UpdateProblem(ctx *gin.Context) {
	problemID, err := utils.ParamUint(ctx, "problem_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdateProblemRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	update := lifecycle.ProblemUpdate{
		Title:             req.Title,
		Description:       req.Description,
		Priority:          req.Priority,
		RootCauseAnalysis: req.RootCauseAnalysis,
		Solution:          req.Solution,
		Status:            req.Status,
		IncidentRef:       req.IncidentRef,
		Comments:          req.Comments,
	}

	var problem *models.Problem

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		problem, err = lifecycle.UpdateProblem(tx, problemID, update, userID)
		return err
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"problem": problem})
}

func RequestProblemApproval(ctx *gin.Context) {
	problemID, err := utils.ParamUint(ctx, "problem_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req RequestApprovalRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var pending *models.Approval
	var approvers []models.User

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		pending, err = lifecycle.RequestApproval(tx, problemID, req.WorkflowID, userID)
		if err != nil {
			return err
		}

		for i := range pending.Workflow.Steps {
			step := &pending.Workflow.Steps[i]
			if step.StepNumber == pending.CurrentStep {
				approvers, err = approval.ResolveApprovers(tx, step)
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	services.NotifyApprovers(pending, pending.Problem, approvers)

	BroadcastRefresh("approvals")
	ctx.JSON(http.StatusCreated, gin.H{"approval": pending})
}
