package models

import "time"

// ProblemStatus is the lifecycle state of a root-cause problem record.
// Closure is gated on a completed approval with outcome APPROVED.
type ProblemStatus string

const (
	ProblemStatusNew             ProblemStatus = "New"
	ProblemStatusInvestigating   ProblemStatus = "Investigating"
	ProblemStatusKnownError      ProblemStatus = "Known Error"
	ProblemStatusPendingApproval ProblemStatus = "Pending Approval"
	ProblemStatusClosed          ProblemStatus = "Closed"
)

func ValidProblemStatus(status string) bool {
	switch ProblemStatus(status) {
	case ProblemStatusNew, ProblemStatusInvestigating, ProblemStatusKnownError,
		ProblemStatusPendingApproval, ProblemStatusClosed:
		return true
	}
	return false
}

// Problem is a root-cause record, possibly explaining several confirmed
// incidents.
type Problem struct {
	ID                uint          `gorm:"primarykey" json:"id"`
	Title             string        `gorm:"not null" json:"title"`
	Description       string        `json:"description,omitempty"`
	Status            ProblemStatus `gorm:"not null;default:New" json:"status"`
	Priority          string        `json:"priority,omitempty"`
	RootCauseAnalysis string        `json:"root_cause_analysis,omitempty"`
	Solution          string        `json:"solution,omitempty"`

	CurrentApprovalID *uint `json:"current_approval_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	// Relationships
	Incidents  []ConfirmedIncident `gorm:"many2many:problem_incidents" json:"incidents,omitempty"`
	StatusLogs []ProblemStatusLog  `gorm:"foreignKey:ProblemID" json:"-"`
}

// ProblemStatusLog is the append-only audit record of a problem transition.
type ProblemStatusLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ProblemID uint      `gorm:"not null;index" json:"problem_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `gorm:"not null" json:"new_status"`
	Action    string    `gorm:"not null" json:"action"`
	Comments  string    `json:"comments,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
