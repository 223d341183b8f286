package models

import "time"

// ApprovalType selects how a workflow step resolves its approver set:
// a fixed user, any holder of a role, or the manager of a group.
type ApprovalType string

const (
	ApprovalTypeUser         ApprovalType = "USER"
	ApprovalTypeRole         ApprovalType = "ROLE"
	ApprovalTypeGroupManager ApprovalType = "GROUP_MANAGER"
)

func ValidApprovalType(t string) bool {
	switch ApprovalType(t) {
	case ApprovalTypeUser, ApprovalTypeRole, ApprovalTypeGroupManager:
		return true
	}
	return false
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

type ApprovalDecision string

const (
	DecisionApproved ApprovalDecision = "APPROVED"
	DecisionRejected ApprovalDecision = "REJECTED"
)

// ApprovalWorkflow is a reusable ordered template of approval steps. Its
// step sequence must not change while a PENDING approval references it.
type ApprovalWorkflow struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`

	// Relationships
	Steps []ApprovalStep `gorm:"foreignKey:WorkflowID" json:"steps,omitempty"`
}

// ApprovalStep is one stage in a workflow. Exactly one of the approver
// references is meaningful, selected by ApprovalType. Steps replaced by a
// workflow edit are retired (IsActive=false) rather than deleted, so
// completed approvals keep valid step references in their logs.
type ApprovalStep struct {
	ID           uint         `gorm:"primarykey" json:"id"`
	WorkflowID   uint         `gorm:"not null;index" json:"workflow_id"`
	StepNumber   int          `gorm:"not null" json:"step_number"`
	ApprovalType ApprovalType `gorm:"not null" json:"approval_type"`
	IsActive     bool         `json:"is_active"`

	ApproverUserID  *uint `json:"approver_user_id,omitempty"`
	ApproverRoleID  *uint `json:"approver_role_id,omitempty"`
	ApproverGroupID *uint `json:"approver_group_id,omitempty"`

	// Relationships
	ApproverUser  *User  `gorm:"foreignKey:ApproverUserID" json:"approver_user,omitempty"`
	ApproverRole  *Role  `gorm:"foreignKey:ApproverRoleID" json:"approver_role,omitempty"`
	ApproverGroup *Group `gorm:"foreignKey:ApproverGroupID" json:"approver_group,omitempty"`
}

// Approval is a live instance of a workflow bound to one problem and one
// requester. PENDING is the only non-terminal status.
type Approval struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	WorkflowID  uint           `gorm:"not null;index" json:"workflow_id"`
	ProblemID   uint           `gorm:"not null;index" json:"problem_id"`
	RequesterID uint           `gorm:"not null" json:"requester_id"`
	Status      ApprovalStatus `gorm:"not null;default:PENDING" json:"status"`
	CurrentStep int            `gorm:"not null;default:1" json:"current_step"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Workflow  *ApprovalWorkflow `gorm:"foreignKey:WorkflowID" json:"workflow,omitempty"`
	Problem   *Problem          `gorm:"foreignKey:ProblemID" json:"problem,omitempty"`
	Requester *User             `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Logs      []ApprovalLog     `gorm:"foreignKey:ApprovalID" json:"logs,omitempty"`
}

// ApprovalLog records one decision on one step, immutable once written.
type ApprovalLog struct {
	ID         uint             `gorm:"primarykey" json:"id"`
	ApprovalID uint             `gorm:"not null;index" json:"approval_id"`
	StepID     uint             `gorm:"not null" json:"step_id"`
	ApproverID uint             `gorm:"not null" json:"approver_id"`
	Decision   ApprovalDecision `gorm:"not null" json:"decision"`
	Comments   string           `json:"comments,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`

	// Relationships
	Step     *ApprovalStep `gorm:"foreignKey:StepID" json:"step,omitempty"`
	Approver *User         `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
}
