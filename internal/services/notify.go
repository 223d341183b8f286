// Package services holds outbound side effects: webhook notifications
// fired after the owning database transaction has committed.
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faultline-dev/faultline/internal/config"
	"github.com/faultline-dev/faultline/internal/models"
)

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	colorRed    = "#FF0000"
	colorGreen  = "#00FF00"
	colorOrange = "#FFA500"

	senderName = "Faultline"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

func sendWebhook(payload SlackWebhookRequest) error {
	webhookURL := config.C.NotifyWebhook

	if webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	resp, err := httpClient.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// dispatch sends in the background. Callers invoke it only after commit;
// a failed notification is logged and never rolls anything back.
func dispatch(kind string, payload SlackWebhookRequest) {
	notificationID := uuid.NewString()

	go func() {
		if err := sendWebhook(payload); err != nil {
			zap.L().Warn("notification dispatch failed",
				zap.String("notification_id", notificationID),
				zap.String("kind", kind),
				zap.Error(err))
			return
		}

		zap.L().Info("notification dispatched",
			zap.String("notification_id", notificationID),
			zap.String("kind", kind))
	}()
}

// NotifyApprovers announces that an approval step is waiting on the
// given users.
func NotifyApprovers(approval *models.Approval, problem *models.Problem, approvers []models.User) {
	names := make([]SlackField, 0, len(approvers))
	for _, approver := range approvers {
		names = append(names, SlackField{Title: "Approver", Value: approver.Username, Short: true})
	}

	dispatch("approval_requested", SlackWebhookRequest{
		Username: senderName,
		Text:     fmt.Sprintf("Approval requested for problem #%d", problem.ID),
		Attachments: []SlackAttachment{{
			Color:     colorOrange,
			Title:     problem.Title,
			Text:      fmt.Sprintf("Step %d of workflow is awaiting a decision", approval.CurrentStep),
			Fields:    names,
			Footer:    senderName,
			Timestamp: time.Now().Unix(),
		}},
	})
}

// NotifyRequester informs the requester of the approval outcome.
func NotifyRequester(approval *models.Approval, problem *models.Problem) {
	color := colorGreen
	verdict := "approved"

	if approval.Status == models.ApprovalStatusRejected {
		color = colorRed
		verdict = "rejected"
	}

	dispatch("approval_decided", SlackWebhookRequest{
		Username: senderName,
		Text:     fmt.Sprintf("Closure request for problem #%d was %s", problem.ID, verdict),
		Attachments: []SlackAttachment{{
			Color:     color,
			Title:     problem.Title,
			Text:      fmt.Sprintf("Approval #%d is now %s", approval.ID, approval.Status),
			Footer:    senderName,
			Timestamp: time.Now().Unix(),
		}},
	})
}

// NotifyEmergencyResponse announces the emergency channel for a confirmed
// incident.
func NotifyEmergencyResponse(incident *models.ConfirmedIncident) {
	dispatch("emergency_response", SlackWebhookRequest{
		Username:  senderName,
		IconEmoji: ":rotating_light:",
		Text:      fmt.Sprintf("Emergency response triggered for %s", incident.Code),
		Attachments: []SlackAttachment{{
			Color: colorRed,
			Title: incident.Title,
			Text:  incident.Description,
			Fields: []SlackField{
				{Title: "Severity", Value: incident.Severity, Short: true},
				{Title: "Status", Value: string(incident.Status), Short: true},
			},
			Footer:    senderName,
			Timestamp: time.Now().Unix(),
		}},
	})
}
