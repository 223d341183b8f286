package models

import (
	"time"

	"gorm.io/datatypes"
)

// PostmortemStatus tracks a postmortem from draft to publication.
type PostmortemStatus string

const (
	PostmortemStatusDraft     PostmortemStatus = "Draft"
	PostmortemStatusInReview  PostmortemStatus = "In Review"
	PostmortemStatusApproved  PostmortemStatus = "Approved"
	PostmortemStatusPublished PostmortemStatus = "Published"
)

func ValidPostmortemStatus(status string) bool {
	switch PostmortemStatus(status) {
	case PostmortemStatusDraft, PostmortemStatusInReview, PostmortemStatusApproved, PostmortemStatusPublished:
		return true
	}
	return false
}

// Postmortem is the written review of a confirmed incident. A postmortem
// may also exist standalone, collecting action items not tied to a single
// incident.
type Postmortem struct {
	ID         uint             `gorm:"primarykey" json:"id"`
	IncidentID *uint            `gorm:"index" json:"incident_id,omitempty"`
	Title      string           `gorm:"not null" json:"title"`
	Status     PostmortemStatus `gorm:"not null" json:"status"`

	IncidentSummary   string `json:"incident_summary,omitempty"`
	TimelineAnalysis  string `json:"timeline_analysis,omitempty"`
	RootCauseAnalysis string `json:"root_cause_analysis,omitempty"`
	LessonsLearned    string `json:"lessons_learned,omitempty"`

	MeetingDate *time.Time     `json:"meeting_date,omitempty"`
	Attendees   datatypes.JSON `json:"attendees,omitempty"`

	AuthorID   uint  `gorm:"not null" json:"author_id"`
	ReviewerID *uint `json:"reviewer_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// Relationships
	Incident    *ConfirmedIncident `gorm:"foreignKey:IncidentID" json:"incident,omitempty"`
	Author      *User              `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Reviewer    *User              `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	ActionItems []ActionItem       `gorm:"foreignKey:PostmortemID" json:"action_items,omitempty"`
}

type ActionItemStatus string

const (
	ActionItemStatusOpen       ActionItemStatus = "Open"
	ActionItemStatusInProgress ActionItemStatus = "In Progress"
	ActionItemStatusCompleted  ActionItemStatus = "Completed"
	ActionItemStatusCancelled  ActionItemStatus = "Cancelled"
)

func ValidActionItemStatus(status string) bool {
	switch ActionItemStatus(status) {
	case ActionItemStatusOpen, ActionItemStatusInProgress, ActionItemStatusCompleted, ActionItemStatusCancelled:
		return true
	}
	return false
}

func ValidActionItemCategory(category string) bool {
	switch category {
	case "Technical", "Process", "Documentation", "Training", "Monitoring":
		return true
	}
	return false
}

// ActionItem is one follow-up measure tracked under a postmortem.
// IncidentCode carries the F-YYYYMMDD-NNN reference of the originating
// incident for display.
type ActionItem struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	PostmortemID uint   `gorm:"not null;index" json:"postmortem_id"`
	IncidentCode string `json:"incident_id,omitempty"`

	Title       string           `gorm:"not null" json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Priority    string           `json:"priority,omitempty"`
	Status      ActionItemStatus `gorm:"not null" json:"status"`

	AssigneeID  *uint      `gorm:"index" json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ExternalLink string `json:"external_link,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Postmortem *Postmortem           `gorm:"foreignKey:PostmortemID" json:"postmortem,omitempty"`
	Assignee   *User                 `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	StatusLogs []ActionItemStatusLog `gorm:"foreignKey:ActionItemID" json:"status_logs,omitempty"`
}

// ActionItemStatusLog records one change to an action item, immutable once
// written.
type ActionItemStatusLog struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	ActionItemID uint   `gorm:"not null;index" json:"action_item_id"`
	UserID       uint   `gorm:"not null" json:"user_id"`
	OldStatus    string `json:"old_status,omitempty"`
	NewStatus    string `gorm:"not null" json:"new_status"`
	Action       string `gorm:"not null" json:"action"`
	Comments     string `json:"comments,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
