package approval

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/lifecycle"
	"github.com/faultline-dev/faultline/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))

	return conn
}

func mustCreateUser(t *testing.T, conn *gorm.DB, username string) *models.User {
	t.Helper()

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&user).Error)

	return &user
}

func mustCreateRole(t *testing.T, conn *gorm.DB, name string, holders ...*models.User) *models.Role {
	t.Helper()

	role := models.Role{Name: name}
	require.NoError(t, conn.Create(&role).Error)

	for _, holder := range holders {
		require.NoError(t, conn.Model(holder).Association("Roles").Append(&role))
	}

	return &role
}

func mustCreateGroup(t *testing.T, conn *gorm.DB, name string, manager *models.User) *models.Group {
	t.Helper()

	group := models.Group{Name: name}
	if manager != nil {
		group.ManagerID = &manager.ID
	}
	require.NoError(t, conn.Create(&group).Error)

	return &group
}

// mustStartApproval builds a workflow from the given steps, opens a problem,
// and requests approval against it.
func mustStartApproval(t *testing.T, conn *gorm.DB, requester *models.User, steps ...models.ApprovalStep) (*models.Problem, *models.Approval) {
	t.Helper()

	workflow := models.ApprovalWorkflow{Name: "closure-" + requester.Username, IsActive: true}
	require.NoError(t, conn.Create(&workflow).Error)

	for i := range steps {
		steps[i].WorkflowID = workflow.ID
		steps[i].StepNumber = i + 1
		steps[i].IsActive = true
		require.NoError(t, conn.Create(&steps[i]).Error)
	}

	problem := models.Problem{Title: "Problem under review"}
	require.NoError(t, lifecycle.CreateProblem(conn, &problem, "", requester.ID))

	record, err := lifecycle.RequestApproval(conn, problem.ID, workflow.ID, requester.ID)
	require.NoError(t, err)

	return &problem, record
}

func countLogs(t *testing.T, conn *gorm.DB, approvalID uint) int64 {
	t.Helper()

	var count int64
	err := conn.Model(&models.ApprovalLog{}).
		Where("approval_id = ?", approvalID).
		Count(&count).Error
	require.NoError(t, err)

	return count
}
