package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/approval"
	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/services"
	"github.com/faultline-dev/faultline/internal/utils"
)

type DecisionRequest struct {
	Comments string `json:"comments"`
}

func ListApprovals(ctx *gin.Context) {
	query := db.DB.Model(&models.Approval{}).
		Preload("Workflow").
		Preload("Problem").
		Preload("Requester")

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if problemID := ctx.Query("problem_id"); problemID != "" {
		query = query.Where("problem_id = ?", problemID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	page, pageSize := parsePagination(ctx)

	var approvals []models.Approval
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&approvals).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"approvals": approvals,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func GetApproval(ctx *gin.Context) {
	approvalID, err := utils.ParamUint(ctx, "approval_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var record models.Approval
	err = db.DB.
		Preload("Workflow.Steps", "is_active = ?", true).
		Preload("Problem").
		Preload("Requester").
		Preload("Logs.Step").
		Preload("Logs.Approver").
		First(&record, approvalID).Error
	if err != nil {
		respondError(ctx, errs.NotFound("approval %d not found", approvalID))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"approval": record})
}

// ListMyApprovals returns the PENDING approvals whose current step the
// caller may decide.
func ListMyApprovals(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var pending []models.Approval
	err = db.DB.
		Preload("Workflow.Steps", "is_active = ?", true).
		Preload("Problem").
		Preload("Requester").
		Where("status = ?", models.ApprovalStatusPending).
		Order("created_at ASC").
		Find(&pending).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	mine := make([]models.Approval, 0)

	for i := range pending {
		record := &pending[i]

		for j := range record.Workflow.Steps {
			step := &record.Workflow.Steps[j]
			if step.StepNumber != record.CurrentStep {
				continue
			}

			allowed, err := approval.CanApprove(db.DB, step, user.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			if allowed {
				mine = append(mine, *record)
			}
			break
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"approvals": mine})
}

func decideApproval(ctx *gin.Context, decide func(tx *gorm.DB, approvalID, actorID uint, comments string) (*models.Approval, error)) {
	approvalID, err := utils.ParamUint(ctx, "approval_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req DecisionRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var record *models.Approval
	var nextApprovers []models.User

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		record, err = decide(tx, approvalID, userID, req.Comments)
		if err != nil {
			return err
		}

		if record.Status != models.ApprovalStatusPending {
			return nil
		}

		for i := range record.Workflow.Steps {
			step := &record.Workflow.Steps[i]
			if step.StepNumber == record.CurrentStep {
				nextApprovers, err = approval.ResolveApprovers(tx, step)
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	if record.Status == models.ApprovalStatusPending {
		services.NotifyApprovers(record, record.Problem, nextApprovers)
	} else {
		services.NotifyRequester(record, record.Problem)
	}

	BroadcastRefresh("approvals")
	ctx.JSON(http.StatusOK, gin.H{"approval": record})
}

func ApproveApproval(ctx *gin.Context) {
	decideApproval(ctx, approval.ApproveStep)
}

func RejectApproval(ctx *gin.Context) {
	decideApproval(ctx, approval.RejectStep)
}
