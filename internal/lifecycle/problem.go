package lifecycle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/statemachine"
)

func loadProblem(tx *gorm.DB, problemID uint) (*models.Problem, error) {
	var problem models.Problem

	err := tx.Preload("Incidents").First(&problem, problemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("problem %d not found", problemID)
		}
		return nil, err
	}

	return &problem, nil
}

// resolveIncidentRef resolves a caller-supplied incident reference that may
// be either a human-readable F- code or a numeric id. Code lookup is tried
// first, then the numeric fallback. Returns nil without error when the
// reference cannot be resolved: associating an incident is a non-critical
// cross-reference and must never fail problem creation.
func resolveIncidentRef(tx *gorm.DB, ref string) *models.ConfirmedIncident {
	if ref == "" {
		return nil
	}

	var incident models.ConfirmedIncident

	if strings.HasPrefix(ref, "F-") {
		if err := tx.Where("code = ?", ref).First(&incident).Error; err == nil {
			return &incident
		}
		zap.L().Warn("incident code lookup failed, trying numeric fallback", zap.String("ref", ref))
	}

	id, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		zap.L().Warn("unresolvable incident reference ignored", zap.String("ref", ref))
		return nil
	}

	if err := tx.First(&incident, uint(id)).Error; err != nil {
		zap.L().Warn("incident reference not found, continuing without association",
			zap.String("ref", ref))
		return nil
	}

	return &incident
}

// CreateProblem persists a new problem in status New with its initial
// status log. incidentRef, when supplied, is resolved best-effort.
func CreateProblem(tx *gorm.DB, problem *models.Problem, incidentRef string, actorID uint) error {
	if problem.Title == "" {
		return errs.Validation("title is required")
	}

	if problem.Priority == "" {
		problem.Priority = "Medium"
	}

	problem.Status = models.ProblemStatusNew

	if err := tx.Create(problem).Error; err != nil {
		return err
	}

	initialLog := models.ProblemStatusLog{
		ProblemID: problem.ID,
		UserID:    actorID,
		NewStatus: string(models.ProblemStatusNew),
		Action:    "Problem created",
		Comments:  "New problem record opened",
	}

	if err := tx.Create(&initialLog).Error; err != nil {
		return err
	}

	if incident := resolveIncidentRef(tx, incidentRef); incident != nil {
		if err := tx.Model(problem).Association("Incidents").Append(incident); err != nil {
			return err
		}
	}

	return nil
}

// ProblemUpdate carries the mutable problem fields for UpdateProblem. Nil
// pointers leave the field untouched.
type ProblemUpdate struct {
	Title             *string
	Description       *string
	Priority          *string
	RootCauseAnalysis *string
	Solution          *string
	Status            *string
	IncidentRef       *string
	Comments          string
}

// UpdateProblem applies field updates. Status changes are validated against
// the problem transition table and logged; Closed and Pending Approval are
// reserved for the approval engine and rejected here.
func UpdateProblem(tx *gorm.DB, problemID uint, update ProblemUpdate, actorID uint) (*models.Problem, error) {
	problem, err := loadProblem(tx, problemID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		problem.Title = *update.Title
	}
	if update.Description != nil {
		problem.Description = *update.Description
	}
	if update.Priority != nil {
		problem.Priority = *update.Priority
	}
	if update.RootCauseAnalysis != nil {
		problem.RootCauseAnalysis = *update.RootCauseAnalysis
	}
	if update.Solution != nil {
		problem.Solution = *update.Solution
	}

	oldStatus := string(problem.Status)

	if update.Status != nil && *update.Status != oldStatus {
		newStatus := *update.Status

		if !models.ValidProblemStatus(newStatus) {
			return nil, errs.Validation("invalid status value: %s", newStatus)
		}

		if newStatus == string(models.ProblemStatusClosed) || newStatus == string(models.ProblemStatusPendingApproval) {
			return nil, errs.Validation("status %s is managed by the approval workflow", newStatus)
		}

		if !statemachine.CanTransition(statemachine.KindProblem, oldStatus, newStatus) {
			return nil, errs.Validation("invalid status transition from %s to %s", oldStatus, newStatus)
		}

		problem.Status = models.ProblemStatus(newStatus)

		statusLog := models.ProblemStatusLog{
			ProblemID: problem.ID,
			UserID:    actorID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Action:    fmt.Sprintf("Status changed to %s", newStatus),
			Comments:  update.Comments,
		}

		if err := tx.Create(&statusLog).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Save(problem).Error; err != nil {
		return nil, err
	}

	if update.IncidentRef != nil {
		if err := tx.Model(problem).Association("Incidents").Clear(); err != nil {
			return nil, err
		}

		if incident := resolveIncidentRef(tx, *update.IncidentRef); incident != nil {
			if err := tx.Model(problem).Association("Incidents").Append(incident); err != nil {
				return nil, err
			}
		}
	}

	return problem, nil
}

// RequestApproval opens an approval instance for the problem against the
// given workflow. At most one PENDING approval may exist per problem.
func RequestApproval(tx *gorm.DB, problemID, workflowID, requesterID uint) (*models.Approval, error) {
	problem, err := loadProblem(tx, problemID)
	if err != nil {
		return nil, err
	}

	if problem.Status == models.ProblemStatusClosed {
		return nil, errs.Validation("closed problems cannot request approval")
	}

	var workflow models.ApprovalWorkflow
	if err := tx.Preload("Steps", "is_active = ?", true).First(&workflow, workflowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("approval workflow %d not found", workflowID)
		}
		return nil, err
	}

	if !workflow.IsActive {
		return nil, errs.Validation("approval workflow %q is not active", workflow.Name)
	}

	if len(workflow.Steps) == 0 {
		return nil, errs.Validation("approval workflow %q has no steps", workflow.Name)
	}

	var pending int64
	err = tx.Model(&models.Approval{}).
		Where("problem_id = ? AND status = ?", problem.ID, models.ApprovalStatusPending).
		Count(&pending).Error
	if err != nil {
		return nil, err
	}

	if pending > 0 {
		return nil, errs.Conflict("an approval is already pending for this problem")
	}

	approval := models.Approval{
		WorkflowID:  workflow.ID,
		ProblemID:   problem.ID,
		RequesterID: requesterID,
		Status:      models.ApprovalStatusPending,
		CurrentStep: 1,
	}

	if err := tx.Create(&approval).Error; err != nil {
		return nil, err
	}

	oldStatus := string(problem.Status)
	problem.Status = models.ProblemStatusPendingApproval
	problem.CurrentApprovalID = &approval.ID

	if err := tx.Save(problem).Error; err != nil {
		return nil, err
	}

	statusLog := models.ProblemStatusLog{
		ProblemID: problem.ID,
		UserID:    requesterID,
		OldStatus: oldStatus,
		NewStatus: string(models.ProblemStatusPendingApproval),
		Action:    "Closure approval requested",
		Comments:  fmt.Sprintf("Approval requested via workflow %q", workflow.Name),
	}

	if err := tx.Create(&statusLog).Error; err != nil {
		return nil, err
	}

	approval.Workflow = &workflow
	approval.Problem = problem
	return &approval, nil
}
