package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/models"
)

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))

	db.DB = conn
	return conn
}

func putJSON(t *testing.T, params gin.Params, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Params = params
	ctx.Request = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	ctx.Request.Header.Set("Content-Type", "application/json")

	return ctx, recorder
}

func TestUpdateWorkflowRetiresReplacedSteps(t *testing.T) {
	conn := newHandlerTestDB(t)

	approver := models.User{Username: "approver", Email: "approver@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, conn.Create(&approver).Error)

	workflow := models.ApprovalWorkflow{Name: "Problem closure", IsActive: true}
	require.NoError(t, conn.Create(&workflow).Error)

	oldStep := models.ApprovalStep{
		WorkflowID:     workflow.ID,
		StepNumber:     1,
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &approver.ID,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(&oldStep).Error)

	// A completed approval whose log references the step being replaced.
	problem := models.Problem{Title: "Done", Status: models.ProblemStatusClosed}
	require.NoError(t, conn.Create(&problem).Error)

	completed := models.Approval{
		WorkflowID:  workflow.ID,
		ProblemID:   problem.ID,
		RequesterID: approver.ID,
		Status:      models.ApprovalStatusApproved,
		CurrentStep: 1,
	}
	require.NoError(t, conn.Create(&completed).Error)

	decision := models.ApprovalLog{
		ApprovalID: completed.ID,
		StepID:     oldStep.ID,
		ApproverID: approver.ID,
		Decision:   models.DecisionApproved,
	}
	require.NoError(t, conn.Create(&decision).Error)

	body := fmt.Sprintf(
		`{"name":"Problem closure","steps":[{"step_number":1,"approval_type":"USER","approver_user_id":%d},{"step_number":2,"approval_type":"USER","approver_user_id":%d}]}`,
		approver.ID, approver.ID)
	ctx, recorder := putJSON(t, gin.Params{{Key: "workflow_id", Value: fmt.Sprint(workflow.ID)}}, body)

	UpdateWorkflow(ctx)
	require.Equal(t, http.StatusOK, recorder.Code)

	// The replaced step survives as an inactive row.
	var replaced models.ApprovalStep
	require.NoError(t, conn.First(&replaced, oldStep.ID).Error)
	require.False(t, replaced.IsActive)

	var active []models.ApprovalStep
	err := conn.Where("workflow_id = ? AND is_active = ?", workflow.ID, true).
		Order("step_number ASC").
		Find(&active).Error
	require.NoError(t, err)
	require.Len(t, active, 2)

	// The completed approval's log still resolves its step.
	var reloaded models.ApprovalLog
	require.NoError(t, conn.Preload("Step").First(&reloaded, decision.ID).Error)
	require.NotNil(t, reloaded.Step)
	require.Equal(t, oldStep.ID, reloaded.Step.ID)
}

func TestUpdateWorkflowBlockedWhilePending(t *testing.T) {
	conn := newHandlerTestDB(t)

	requester := models.User{Username: "requester", Email: "requester@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, conn.Create(&requester).Error)

	workflow := models.ApprovalWorkflow{Name: "Problem closure", IsActive: true}
	require.NoError(t, conn.Create(&workflow).Error)

	step := models.ApprovalStep{
		WorkflowID:     workflow.ID,
		StepNumber:     1,
		ApprovalType:   models.ApprovalTypeUser,
		ApproverUserID: &requester.ID,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(&step).Error)

	problem := models.Problem{Title: "In flight", Status: models.ProblemStatusPendingApproval}
	require.NoError(t, conn.Create(&problem).Error)

	pending := models.Approval{
		WorkflowID:  workflow.ID,
		ProblemID:   problem.ID,
		RequesterID: requester.ID,
		Status:      models.ApprovalStatusPending,
		CurrentStep: 1,
	}
	require.NoError(t, conn.Create(&pending).Error)

	body := fmt.Sprintf(
		`{"name":"Problem closure","steps":[{"step_number":1,"approval_type":"USER","approver_user_id":%d}]}`,
		requester.ID)
	ctx, recorder := putJSON(t, gin.Params{{Key: "workflow_id", Value: fmt.Sprint(workflow.ID)}}, body)

	UpdateWorkflow(ctx)
	require.Equal(t, http.StatusConflict, recorder.Code)

	var untouched models.ApprovalStep
	require.NoError(t, conn.First(&untouched, step.ID).Error)
	require.True(t, untouched.IsActive)
}
