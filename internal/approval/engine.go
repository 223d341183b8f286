package approval

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

func loadApproval(tx *gorm.DB, approvalID uint) (*models.Approval, error) {
	var approval models.Approval

	err := tx.Preload("Workflow.Steps", "is_active = ?", true).Preload("Problem").First(&approval, approvalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("approval %d not found", approvalID)
		}
		return nil, err
	}

	return &approval, nil
}

// currentStep returns the workflow step matching the approval's cursor.
func currentStep(approval *models.Approval) (*models.ApprovalStep, error) {
	for i := range approval.Workflow.Steps {
		step := &approval.Workflow.Steps[i]
		if step.StepNumber == approval.CurrentStep {
			return step, nil
		}
	}
	return nil, errs.Validation("approval %d has no step %d", approval.ID, approval.CurrentStep)
}

func maxStepNumber(workflow *models.ApprovalWorkflow) int {
	max := 0
	for _, step := range workflow.Steps {
		if step.StepNumber > max {
			max = step.StepNumber
		}
	}
	return max
}

// ApproveStep records an APPROVED decision on the approval's current step
// by actorID. Intermediate steps advance the cursor; the final step
// completes the approval and closes the problem in the same transaction.
func ApproveStep(tx *gorm.DB, approvalID, actorID uint, comments string) (*models.Approval, error) {
	approval, err := loadApproval(tx, approvalID)
	if err != nil {
		return nil, err
	}

	if approval.Status != models.ApprovalStatusPending {
		return nil, errs.Validation("approval is already %s", approval.Status)
	}

	step, err := currentStep(approval)
	if err != nil {
		return nil, err
	}

	allowed, err := CanApprove(tx, step, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errs.Authorization("you are not an approver for the current step")
	}

	decision := models.ApprovalLog{
		ApprovalID: approval.ID,
		StepID:     step.ID,
		ApproverID: actorID,
		Decision:   models.DecisionApproved,
		Comments:   comments,
	}
	if err := tx.Create(&decision).Error; err != nil {
		return nil, err
	}

	if approval.CurrentStep < maxStepNumber(approval.Workflow) {
		approval.CurrentStep++
		if err := tx.Save(approval).Error; err != nil {
			return nil, err
		}
		return approval, nil
	}

	approval.Status = models.ApprovalStatusApproved
	if err := tx.Save(approval).Error; err != nil {
		return nil, err
	}

	if err := closeProblem(tx, approval, actorID); err != nil {
		return nil, err
	}

	return approval, nil
}

// RejectStep records a REJECTED decision, which is terminal for the whole
// approval. A rejection comment is mandatory. The problem returns to
// Investigating for rework.
func RejectStep(tx *gorm.DB, approvalID, actorID uint, comments string) (*models.Approval, error) {
	if comments == "" {
		return nil, errs.Validation("a comment is required when rejecting")
	}

	approval, err := loadApproval(tx, approvalID)
	if err != nil {
		return nil, err
	}

	if approval.Status != models.ApprovalStatusPending {
		return nil, errs.Validation("approval is already %s", approval.Status)
	}

	step, err := currentStep(approval)
	if err != nil {
		return nil, err
	}

	allowed, err := CanApprove(tx, step, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errs.Authorization("you are not an approver for the current step")
	}

	decision := models.ApprovalLog{
		ApprovalID: approval.ID,
		StepID:     step.ID,
		ApproverID: actorID,
		Decision:   models.DecisionRejected,
		Comments:   comments,
	}
	if err := tx.Create(&decision).Error; err != nil {
		return nil, err
	}

	approval.Status = models.ApprovalStatusRejected
	if err := tx.Save(approval).Error; err != nil {
		return nil, err
	}

	return approval, reopenProblem(tx, approval, actorID, comments)
}

func closeProblem(tx *gorm.DB, approval *models.Approval, actorID uint) error {
	problem := approval.Problem
	if problem == nil {
		return errs.NotFound("problem %d not found", approval.ProblemID)
	}

	now := time.Now().UTC()
	oldStatus := string(problem.Status)

	problem.Status = models.ProblemStatusClosed
	problem.ClosedAt = &now
	problem.CurrentApprovalID = nil

	err := tx.Model(problem).Updates(map[string]any{
		"status":              problem.Status,
		"closed_at":           problem.ClosedAt,
		"current_approval_id": nil,
	}).Error
	if err != nil {
		return err
	}

	statusLog := models.ProblemStatusLog{
		ProblemID: problem.ID,
		UserID:    actorID,
		OldStatus: oldStatus,
		NewStatus: string(models.ProblemStatusClosed),
		Action:    "Closure approved",
		Comments:  fmt.Sprintf("All steps of approval %d approved", approval.ID),
	}

	return tx.Create(&statusLog).Error
}

func reopenProblem(tx *gorm.DB, approval *models.Approval, actorID uint, reason string) error {
	problem := approval.Problem
	if problem == nil {
		return errs.NotFound("problem %d not found", approval.ProblemID)
	}

	oldStatus := string(problem.Status)

	err := tx.Model(problem).Updates(map[string]any{
		"status":              models.ProblemStatusInvestigating,
		"current_approval_id": nil,
	}).Error
	if err != nil {
		return err
	}

	problem.Status = models.ProblemStatusInvestigating
	problem.CurrentApprovalID = nil

	statusLog := models.ProblemStatusLog{
		ProblemID: problem.ID,
		UserID:    actorID,
		OldStatus: oldStatus,
		NewStatus: string(models.ProblemStatusInvestigating),
		Action:    "Closure rejected",
		Comments:  fmt.Sprintf("Rejection reason: %s", reason),
	}

	return tx.Create(&statusLog).Error
}

// EnsureWorkflowMutable fails with a conflict when any PENDING approval
// references the workflow. Editing or deleting a workflow mid-flight would
// silently change the meaning of in-progress approvals.
func EnsureWorkflowMutable(tx *gorm.DB, workflowID uint) error {
	var pending int64

	err := tx.Model(&models.Approval{}).
		Where("workflow_id = ? AND status = ?", workflowID, models.ApprovalStatusPending).
		Count(&pending).Error
	if err != nil {
		return err
	}

	if pending > 0 {
		return errs.Conflict("workflow has %d pending approval(s) and cannot be modified", pending)
	}

	return nil
}
