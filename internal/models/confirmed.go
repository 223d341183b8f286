package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConfirmedStatus is the lifecycle state of a confirmed, business-impacting
// incident: Pending -> Investigating -> Recovering -> Recovered ->
// Post-Mortem -> Closed, with limited regressions back to Investigating.
type ConfirmedStatus string

const (
	ConfirmedStatusPending       ConfirmedStatus = "Pending"
	ConfirmedStatusInvestigating ConfirmedStatus = "Investigating"
	ConfirmedStatusRecovering    ConfirmedStatus = "Recovering"
	ConfirmedStatusRecovered     ConfirmedStatus = "Recovered"
	ConfirmedStatusPostMortem    ConfirmedStatus = "Post-Mortem"
	ConfirmedStatusClosed        ConfirmedStatus = "Closed"
)

func ValidConfirmedStatus(status string) bool {
	switch ConfirmedStatus(status) {
	case ConfirmedStatusPending, ConfirmedStatusInvestigating, ConfirmedStatusRecovering,
		ConfirmedStatusRecovered, ConfirmedStatusPostMortem, ConfirmedStatusClosed:
		return true
	}
	return false
}

func ValidSeverity(severity string) bool {
	switch severity {
	case "P1", "P2", "P3", "P4":
		return true
	}
	return false
}

// ConfirmedIncident is a confirmed business-impacting incident, identified
// by a human-readable code of the form F-YYYYMMDD-NNN where NNN is a
// per-day sequence.
type ConfirmedIncident struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Code        string          `gorm:"uniqueIndex;not null" json:"incident_id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description,omitempty"`
	Status      ConfirmedStatus `gorm:"not null;default:Pending" json:"status"`
	Severity    string          `gorm:"not null" json:"severity"`

	ImpactScope      string         `json:"impact_scope,omitempty"`
	AffectedServices datatypes.JSON `json:"affected_services,omitempty"`
	BusinessImpact   string         `json:"business_impact,omitempty"`

	CommanderID *uint `json:"commander_id,omitempty"`
	AssigneeID  *uint `gorm:"index" json:"assignee_id,omitempty"`
	ReporterID  uint  `gorm:"not null" json:"reporter_id"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DetectedAt     *time.Time `json:"detected_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	RecoveredAt    *time.Time `json:"recovered_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`

	EmergencyChatURL string `json:"emergency_chat_url,omitempty"`
	NotificationSent bool   `gorm:"default:false" json:"notification_sent"`
	ExternalStatus   bool   `gorm:"default:false" json:"external_status_page"`

	PostmortemRequired bool `gorm:"default:true" json:"postmortem_required"`

	// Relationships
	Commander       *User           `gorm:"foreignKey:CommanderID" json:"commander,omitempty"`
	Assignee        *User           `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Reporter        *User           `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	Alerts          []Alert         `gorm:"foreignKey:IncidentID" json:"alerts,omitempty"`
	TimelineEntries []TimelineEntry `gorm:"foreignKey:IncidentID" json:"timeline,omitempty"`
}

func (ConfirmedIncident) TableName() string {
	return "confirmed_incidents"
}

type TimelineEntryType string

const (
	TimelineStatusChange      TimelineEntryType = "status_change"
	TimelineComment           TimelineEntryType = "comment"
	TimelineAction            TimelineEntryType = "action"
	TimelineEmergencyResponse TimelineEntryType = "emergency_response"
	TimelineAlertLinked       TimelineEntryType = "alert_linked"
)

// TimelineEntry is one immutable record on a confirmed incident's timeline.
type TimelineEntry struct {
	ID          uint              `gorm:"primarykey" json:"id"`
	IncidentID  uint              `gorm:"not null;index" json:"incident_id"`
	UserID      uint              `gorm:"not null" json:"user_id"`
	EntryType   TimelineEntryType `gorm:"not null" json:"entry_type"`
	Title       string            `gorm:"not null" json:"title"`
	Description string            `json:"description,omitempty"`
	Timestamp   time.Time         `gorm:"not null;index" json:"timestamp"`

	RelatedAlertID *uint          `json:"related_alert_id,omitempty"`
	Attachments    datatypes.JSON `json:"attachments,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`

	// Relationships
	User         *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RelatedAlert *Alert `gorm:"foreignKey:RelatedAlertID" json:"related_alert,omitempty"`
}

// IncidentCounter backs per-day incident code generation. The creating
// transaction increments the row for its day, so two incidents created in
// the same window cannot observe the same sequence number.
type IncidentCounter struct {
	ID    uint   `gorm:"primarykey"`
	Day   string `gorm:"uniqueIndex;not null"`
	Count int64  `gorm:"not null;default:0"`
}
