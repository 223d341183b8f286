package lifecycle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

func mustCreateWorkflow(t *testing.T, conn *gorm.DB, approver *models.User) *models.ApprovalWorkflow {
	t.Helper()

	workflow := models.ApprovalWorkflow{Name: "Problem closure", IsActive: true}
	require.NoError(t, conn.Create(&workflow).Error)

	step := models.ApprovalStep{
		WorkflowID:     workflow.ID,
		StepNumber:     1,
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &approver.ID,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(&step).Error)

	workflow.Steps = []models.ApprovalStep{step}
	return &workflow
}

func TestCreateProblemWritesInitialLog(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "analyst")

	problem := models.Problem{Title: "Recurring cache stampede"}
	require.NoError(t, CreateProblem(conn, &problem, "", user.ID))
	require.Equal(t, models.ProblemStatusNew, problem.Status)
	require.Equal(t, "Medium", problem.Priority)

	var logs []models.ProblemStatusLog
	require.NoError(t, conn.Where("problem_id = ?", problem.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, "New", logs[0].NewStatus)
}

func TestCreateProblemResolvesIncidentByCode(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "analyst")
	incident := mustCreateConfirmed(t, conn, user)

	problem := models.Problem{Title: "Root cause of gateway outage"}
	require.NoError(t, CreateProblem(conn, &problem, incident.Code, user.ID))

	var reloaded models.Problem
	require.NoError(t, conn.Preload("Incidents").First(&reloaded, problem.ID).Error)
	require.Len(t, reloaded.Incidents, 1)
	require.Equal(t, incident.Code, reloaded.Incidents[0].Code)
}

func TestCreateProblemResolvesIncidentByNumericID(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "analyst")
	incident := mustCreateConfirmed(t, conn, user)

	problem := models.Problem{Title: "Root cause"}
	require.NoError(t, CreateProblem(conn, &problem, fmt.Sprintf("%d", incident.ID), user.ID))

	var reloaded models.Problem
	require.NoError(t, conn.Preload("Incidents").First(&reloaded, problem.ID).Error)
	require.Len(t, reloaded.Incidents, 1)
}

func TestCreateProblemUnresolvableRefContinues(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "analyst")

	problem := models.Problem{Title: "Root cause"}
	require.NoError(t, CreateProblem(conn, &problem, "F-19990101-001", user.ID))

	var reloaded models.Problem
	require.NoError(t, conn.Preload("Incidents").First(&reloaded, problem.ID).Error)
	require.Empty(t, reloaded.Incidents)
}

func TestUpdateProblemStatusTransitions(t *testing.T) {
	conn := newTestDB(t)
	user := mustCreateUser(t, conn, "analyst")

	problem := models.Problem{Title: "Flaky DNS"}
	require.NoError(t, CreateProblem(conn, &problem, "", user.ID))

	investigating := "Investigating"
	updated, err := UpdateProblem(conn, problem.ID, ProblemUpdate{Status: &investigating}, user.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProblemStatusInvestigating, updated.Status)

	// Engine-owned statuses cannot be set directly.
	closed := "Closed"
	_, err = UpdateProblem(conn, problem.ID, ProblemUpdate{Status: &closed}, user.ID)
	require.True(t, errs.IsValidation(err))

	pending := "Pending Approval"
	_, err = UpdateProblem(conn, problem.ID, ProblemUpdate{Status: &pending}, user.ID)
	require.True(t, errs.IsValidation(err))
}

func TestRequestApprovalAtMostOnePending(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	approver := mustCreateUser(t, conn, "approver")
	workflow := mustCreateWorkflow(t, conn, approver)

	problem := models.Problem{Title: "Close me"}
	require.NoError(t, CreateProblem(conn, &problem, "", requester.ID))

	created, err := RequestApproval(conn, problem.ID, workflow.ID, requester.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApprovalStatusPending, created.Status)
	require.Equal(t, 1, created.CurrentStep)

	var reloaded models.Problem
	require.NoError(t, conn.First(&reloaded, problem.ID).Error)
	require.Equal(t, models.ProblemStatusPendingApproval, reloaded.Status)
	require.Equal(t, created.ID, *reloaded.CurrentApprovalID)

	_, err = RequestApproval(conn, problem.ID, workflow.ID, requester.ID)
	require.True(t, errs.IsConflict(err))
}

func TestRequestApprovalInactiveWorkflow(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	approver := mustCreateUser(t, conn, "approver")
	workflow := mustCreateWorkflow(t, conn, approver)
	require.NoError(t, conn.Model(workflow).Update("is_active", false).Error)

	problem := models.Problem{Title: "Close me"}
	require.NoError(t, CreateProblem(conn, &problem, "", requester.ID))

	_, err := RequestApproval(conn, problem.ID, workflow.ID, requester.ID)
	require.True(t, errs.IsValidation(err))
}
