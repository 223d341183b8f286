package models

import (
	"time"

	"gorm.io/gorm"
)

// IncidentStatus is the lifecycle state of a legacy (ticket-style) incident.
type IncidentStatus string

const (
	IncidentStatusNew        IncidentStatus = "New"
	IncidentStatusInProgress IncidentStatus = "In Progress"
	IncidentStatusOnHold     IncidentStatus = "On Hold"
	IncidentStatusResolved   IncidentStatus = "Resolved"
	IncidentStatusClosed     IncidentStatus = "Closed"
	IncidentStatusReopened   IncidentStatus = "Reopened"
)

func ValidIncidentStatus(status string) bool {
	switch IncidentStatus(status) {
	case IncidentStatusNew, IncidentStatusInProgress, IncidentStatusOnHold,
		IncidentStatusResolved, IncidentStatusClosed, IncidentStatusReopened:
		return true
	}
	return false
}

// Incident is the legacy ticket-style incident entity. The coded
// ConfirmedIncident is the authoritative model for the response workflow;
// this one remains for classic assign/resolve/close handling.
type Incident struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"not null" json:"description"`
	Status      IncidentStatus `gorm:"not null;default:New" json:"status"`
	Impact      string         `gorm:"not null" json:"impact"`
	Urgency     string         `gorm:"not null" json:"urgency"`
	Priority    string         `gorm:"-" json:"priority"`

	ServiceID  *uint `gorm:"index" json:"service_id,omitempty"`
	AssigneeID *uint `gorm:"index" json:"assignee_id,omitempty"`
	ReporterID uint  `gorm:"not null" json:"reporter_id"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	// Relationships
	Service    *Service            `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Assignee   *User               `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Reporter   *User               `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	Comments   []IncidentComment   `gorm:"foreignKey:IncidentID" json:"comments,omitempty"`
	StatusLogs []IncidentStatusLog `gorm:"foreignKey:IncidentID" json:"-"`
}

// AfterFind derives the display priority from impact and urgency.
func (i *Incident) AfterFind(tx *gorm.DB) error {
	i.Priority = DerivePriority(i.Impact, i.Urgency)
	return nil
}

func (i *Incident) AfterCreate(tx *gorm.DB) error {
	i.Priority = DerivePriority(i.Impact, i.Urgency)
	return nil
}

// DerivePriority maps the impact/urgency matrix onto a single priority.
func DerivePriority(impact, urgency string) string {
	switch {
	case impact == "High" && urgency == "High":
		return "Critical"
	case impact == "High" && urgency == "Medium",
		impact == "Medium" && urgency == "High":
		return "High"
	case impact == "High" && urgency == "Low",
		impact == "Medium" && urgency == "Medium",
		impact == "Low" && urgency == "High":
		return "Medium"
	default:
		return "Low"
	}
}

type IncidentComment struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	IncidentID uint      `gorm:"not null;index" json:"incident_id"`
	UserID     uint      `gorm:"not null" json:"user_id"`
	Content    string    `gorm:"not null" json:"content"`
	IsPrivate  bool      `gorm:"default:false" json:"is_private"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IncidentStatusLog is the append-only audit record of a legacy incident
// transition. Exactly one row is written per accepted transition.
type IncidentStatusLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	IncidentID uint      `gorm:"not null;index" json:"incident_id"`
	UserID     uint      `gorm:"not null" json:"user_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `gorm:"not null" json:"new_status"`
	Action     string    `gorm:"not null" json:"action"`
	Comments   string    `json:"comments,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
