package models

import "time"

// AlertLevel is the severity reported by the monitoring source.
type AlertLevel string

const (
	AlertLevelCritical AlertLevel = "Critical"
	AlertLevelWarning  AlertLevel = "Warning"
	AlertLevelInfo     AlertLevel = "Info"
)

// AlertStatus tracks an alert through triage. Statuses are monotonic
// except that Linked may be reached from any non-terminal state.
type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "New"
	AlertStatusAcknowledged AlertStatus = "Acknowledged"
	AlertStatusLinked       AlertStatus = "Linked"
	AlertStatusIgnored      AlertStatus = "Ignored"
)

func ValidAlertLevel(level string) bool {
	switch AlertLevel(level) {
	case AlertLevelCritical, AlertLevelWarning, AlertLevelInfo:
		return true
	}
	return false
}

// Alert is a raw signal from a monitoring system, pre-triage. Alerts are
// never deleted; lifecycle operations only advance their status.
type Alert struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `json:"description,omitempty"`
	AlertSource string      `json:"alert_source,omitempty"`
	AlertRule   string      `json:"alert_rule,omitempty"`
	Level       AlertLevel  `gorm:"not null" json:"level"`
	Status      AlertStatus `gorm:"not null;default:New" json:"status"`
	MetricName  string      `json:"metric_name,omitempty"`
	MetricValue string      `json:"metric_value,omitempty"`
	Threshold   string      `json:"threshold,omitempty"`
	Host        string      `json:"host,omitempty"`
	Environment string      `json:"environment,omitempty"`

	ServiceID      *uint `gorm:"index" json:"service_id,omitempty"`
	IncidentID     *uint `gorm:"index" json:"incident_id,omitempty"`
	AcknowledgedBy *uint `json:"acknowledged_by,omitempty"`

	FiredAt        time.Time  `gorm:"not null" json:"fired_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relationships
	Service          *Service           `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Incident         *ConfirmedIncident `gorm:"foreignKey:IncidentID" json:"incident,omitempty"`
	AcknowledgedUser *User              `gorm:"foreignKey:AcknowledgedBy" json:"acknowledged_user,omitempty"`
	Comments         []AlertComment     `gorm:"foreignKey:AlertID" json:"comments,omitempty"`
}

type AlertComment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	AlertID   uint      `gorm:"not null;index" json:"alert_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Content   string    `gorm:"not null" json:"content"`
	IsPrivate bool      `gorm:"default:false" json:"is_private"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
