package approval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

func TestApproveFinalStepClosesProblem(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	approver := mustCreateUser(t, conn, "approver")

	problem, record := mustStartApproval(t, conn, requester, models.ApprovalStep{
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &approver.ID,
	})

	updated, err := ApproveStep(conn, record.ID, approver.ID, "looks good")
	require.NoError(t, err)
	require.Equal(t, models.ApprovalStatusApproved, updated.Status)

	var reloaded models.Problem
	require.NoError(t, conn.First(&reloaded, problem.ID).Error)
	require.Equal(t, models.ProblemStatusClosed, reloaded.Status)
	require.NotNil(t, reloaded.ClosedAt)
	require.Nil(t, reloaded.CurrentApprovalID)

	var closureLog models.ProblemStatusLog
	err = conn.Where("problem_id = ? AND new_status = ?", problem.ID, "Closed").First(&closureLog).Error
	require.NoError(t, err)
}

func TestTwoStepGroupManagerThenRole(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	manager := mustCreateUser(t, conn, "manager")
	lead := mustCreateUser(t, conn, "lead")

	group := mustCreateGroup(t, conn, "Payments", manager)
	role := mustCreateRole(t, conn, "Quality Lead", lead)

	problem, record := mustStartApproval(t, conn, requester,
		models.ApprovalStep{ApprovalType: models.ApprovalTypeGroupManager, ApproverGroupID: &group.ID},
		models.ApprovalStep{ApprovalType: models.ApprovalTypeRole, ApproverRoleID: &role.ID},
	)

	// The role holder cannot decide step 1.
	_, err := ApproveStep(conn, record.ID, lead.ID, "")
	require.True(t, errs.IsAuthorization(err))
	require.EqualValues(t, 0, countLogs(t, conn, record.ID))

	updated, err := ApproveStep(conn, record.ID, manager.ID, "manager sign-off")
	require.NoError(t, err)
	require.Equal(t, models.ApprovalStatusPending, updated.Status)
	require.Equal(t, 2, updated.CurrentStep)

	// The manager cannot decide step 2.
	_, err = ApproveStep(conn, record.ID, manager.ID, "")
	require.True(t, errs.IsAuthorization(err))

	updated, err = ApproveStep(conn, record.ID, lead.ID, "quality sign-off")
	require.NoError(t, err)
	require.Equal(t, models.ApprovalStatusApproved, updated.Status)
	require.EqualValues(t, 2, countLogs(t, conn, record.ID))

	var reloaded models.Problem
	require.NoError(t, conn.First(&reloaded, problem.ID).Error)
	require.Equal(t, models.ProblemStatusClosed, reloaded.Status)
}

func TestUnauthorizedApproveLeavesNoLog(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	approver := mustCreateUser(t, conn, "approver")
	bystander := mustCreateUser(t, conn, "bystander")

	_, record := mustStartApproval(t, conn, requester, models.ApprovalStep{
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &approver.ID,
	})

	_, err := ApproveStep(conn, record.ID, bystander.ID, "")
	require.True(t, errs.IsAuthorization(err))
	require.EqualValues(t, 0, countLogs(t, conn, record.ID))

	var reloaded models.Approval
	require.NoError(t, conn.First(&reloaded, record.ID).Error)
	require.Equal(t, models.ApprovalStatusPending, reloaded.Status)
	require.Equal(t, 1, reloaded.CurrentStep)
}

func TestRejectRequiresComment(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	approver := mustCreateUser(t, conn, "approver")

	_, record := mustStartApproval(t, conn, requester, models.ApprovalStep{
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &approver.ID,
	})

	_, err := RejectStep(conn, record.ID, approver.ID, "")
	require.True(t, errs.IsValidation(err))
	require.EqualValues(t, 0, countLogs(t, conn, record.ID))
}

func TestRejectIsTerminal(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	approver := mustCreateUser(t, conn, "approver")

	problem, record := mustStartApproval(t, conn, requester, models.ApprovalStep{
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &approver.ID,
	})

	updated, err := RejectStep(conn, record.ID, approver.ID, "not enough root cause analysis")
	require.NoError(t, err)
	require.Equal(t, models.ApprovalStatusRejected, updated.Status)

	var reloaded models.Problem
	require.NoError(t, conn.First(&reloaded, problem.ID).Error)
	require.Equal(t, models.ProblemStatusInvestigating, reloaded.Status)
	require.Nil(t, reloaded.CurrentApprovalID)

	// No further decisions on a terminal approval.
	_, err = ApproveStep(conn, record.ID, approver.ID, "")
	require.True(t, errs.IsValidation(err))

	_, err = RejectStep(conn, record.ID, approver.ID, "again")
	require.True(t, errs.IsValidation(err))
}

func TestApproveAlreadyDecided(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	approver := mustCreateUser(t, conn, "approver")

	_, record := mustStartApproval(t, conn, requester, models.ApprovalStep{
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &approver.ID,
	})

	_, err := ApproveStep(conn, record.ID, approver.ID, "")
	require.NoError(t, err)

	_, err = ApproveStep(conn, record.ID, approver.ID, "")
	require.True(t, errs.IsValidation(err))
	require.EqualValues(t, 1, countLogs(t, conn, record.ID))
}

func TestEnsureWorkflowMutable(t *testing.T) {
	conn := newTestDB(t)
	requester := mustCreateUser(t, conn, "requester")
	approver := mustCreateUser(t, conn, "approver")

	_, record := mustStartApproval(t, conn, requester, models.ApprovalStep{
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &approver.ID,
	})

	err := EnsureWorkflowMutable(conn, record.WorkflowID)
	require.True(t, errs.IsConflict(err))

	_, err = ApproveStep(conn, record.ID, approver.ID, "")
	require.NoError(t, err)

	require.NoError(t, EnsureWorkflowMutable(conn, record.WorkflowID))
}
