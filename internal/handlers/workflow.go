package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/approval"
	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/utils"
)

type WorkflowStepRequest struct {
	StepNumber      int    `json:"step_number" binding:"required,min=1"`
	ApprovalType    string `json:"approval_type" binding:"required"`
	ApproverUserID  *uint  `json:"approver_user_id"`
	ApproverRoleID  *uint  `json:"approver_role_id"`
	ApproverGroupID *uint  `json:"approver_group_id"`
}

type WorkflowRequest struct {
	Name        string                `json:"name" binding:"required"`
	Description string                `json:"description"`
	IsActive    *bool                 `json:"is_active"`
	Steps       []WorkflowStepRequest `json:"steps" binding:"required,min=1"`
}

// validateSteps checks that each step carries the approver reference its
// type requires.
func validateSteps(steps []WorkflowStepRequest) error {
	for _, step := range steps {
		if !models.ValidApprovalType(step.ApprovalType) {
			return errs.Validation("invalid approval type: %s", step.ApprovalType)
		}

		switch models.ApprovalType(step.ApprovalType) {
		case models.ApprovalTypeUser:
			if step.ApproverUserID == nil {
				return errs.Validation("step %d requires approver_user_id", step.StepNumber)
			}
		case models.ApprovalTypeRole:
			if step.ApproverRoleID == nil {
				return errs.Validation("step %d requires approver_role_id", step.StepNumber)
			}
		case models.ApprovalTypeGroupManager:
			if step.ApproverGroupID == nil {
				return errs.Validation("step %d requires approver_group_id", step.StepNumber)
			}
		}
	}

	return nil
}

// buildSteps orders the requested steps and renumbers them 1..N, so gaps
// in client-supplied numbering never reach the engine.
func buildSteps(workflowID uint, steps []WorkflowStepRequest) []models.ApprovalStep {
	sorted := make([]WorkflowStepRequest, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StepNumber < sorted[j].StepNumber })

	built := make([]models.ApprovalStep, 0, len(sorted))

	for i, step := range sorted {
		built = append(built, models.ApprovalStep{
			WorkflowID:      workflowID,
			StepNumber:      i + 1,
			ApprovalType:    models.ApprovalType(step.ApprovalType),
			ApproverUserID:  step.ApproverUserID,
			ApproverRoleID:  step.ApproverRoleID,
			ApproverGroupID: step.ApproverGroupID,
			IsActive:        true,
		})
	}

	return built
}

func ListWorkflows(ctx *gin.Context) {
	var workflows []models.ApprovalWorkflow

	query := db.DB.Preload("Steps", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_active = ?", true).Order("step_number ASC")
	})

	if active := ctx.Query("is_active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	if err := query.Order("name ASC").Find(&workflows).Error; err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"workflows": workflows})
}

func GetWorkflow(ctx *gin.Context) {
	workflowID, err := utils.ParamUint(ctx, "workflow_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var workflow models.ApprovalWorkflow
	err = db.DB.Preload("Steps", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_active = ?", true).Order("step_number ASC")
	}).First(&workflow, workflowID).Error
	if err != nil {
		respondError(ctx, errs.NotFound("approval workflow %d not found", workflowID))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"workflow": workflow})
}

func CreateWorkflow(ctx *gin.Context) {
	var req WorkflowRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := validateSteps(req.Steps); err != nil {
		respondError(ctx, err)
		return
	}

	workflow := models.ApprovalWorkflow{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}

	if req.IsActive != nil {
		workflow.IsActive = *req.IsActive
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.ApprovalWorkflow{}).Where("name = ?", req.Name).Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.Conflict("a workflow named %q already exists", req.Name)
		}

		if err := tx.Create(&workflow).Error; err != nil {
			return err
		}

		workflow.Steps = buildSteps(workflow.ID, req.Steps)
		return tx.Create(&workflow.Steps).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"workflow": workflow})
}

// UpdateWorkflow replaces the workflow definition wholesale. Blocked while
// any PENDING approval references the workflow. Replaced steps are retired
// rather than deleted so completed approvals keep their step references.
func UpdateWorkflow(ctx *gin.Context) {
	workflowID, err := utils.ParamUint(ctx, "workflow_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req WorkflowRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := validateSteps(req.Steps); err != nil {
		respondError(ctx, err)
		return
	}

	var workflow models.ApprovalWorkflow

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&workflow, workflowID).Error; err != nil {
			return errs.NotFound("approval workflow %d not found", workflowID)
		}

		if err := approval.EnsureWorkflowMutable(tx, workflowID); err != nil {
			return err
		}

		workflow.Name = req.Name
		workflow.Description = req.Description
		if req.IsActive != nil {
			workflow.IsActive = *req.IsActive
		}

		if err := tx.Save(&workflow).Error; err != nil {
			return err
		}

		err := tx.Model(&models.ApprovalStep{}).
			Where("workflow_id = ? AND is_active = ?", workflowID, true).
			Update("is_active", false).Error
		if err != nil {
			return err
		}

		workflow.Steps = buildSteps(workflow.ID, req.Steps)
		return tx.Create(&workflow.Steps).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"workflow": workflow})
}

// DeleteWorkflow deactivates a workflow rather than removing rows, so
// completed approvals keep their step references. Blocked while any
// PENDING approval references it.
func DeleteWorkflow(ctx *gin.Context) {
	workflowID, err := utils.ParamUint(ctx, "workflow_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var workflow models.ApprovalWorkflow
		if err := tx.First(&workflow, workflowID).Error; err != nil {
			return errs.NotFound("approval workflow %d not found", workflowID)
		}

		if err := approval.EnsureWorkflowMutable(tx, workflowID); err != nil {
			return err
		}

		return tx.Model(&workflow).Update("is_active", false).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Workflow deactivated"})
}
