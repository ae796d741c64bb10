package dto

import (
	"time"

	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/repository"
	"github.com/yukikurage/chainboard/internal/utils"
)

// SessionResponse is returned when a new session is issued
type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

// SessionStatsResponse lists per-session counters
type SessionStatsResponse struct {
	TotalSessions int64                     `json:"totalSessions"`
	Sessions      []repository.SessionStats `json:"sessions"`
	Pagination    utils.PaginationResponse  `json:"pagination"`
	Timestamp     time.Time                 `json:"timestamp"`
}

// NotificationSettingsRequest is the body of PUT /api/settings/notifications
type NotificationSettingsRequest struct {
	Enabled          bool   `json:"enabled"`
	ChatID           string `json:"chatId" binding:"max=64"`
	BotToken         string `json:"botToken" binding:"max=255"`
	NotifyOnComplete bool   `json:"notifyOnComplete"`
	NotifyOnStart    bool   `json:"notifyOnStart"`
	CustomMessage    string `json:"customMessage"`
}

// ToModel converts the request into settings for the session
func (r NotificationSettingsRequest) ToModel(sessionID string) models.NotificationSettings {
	return models.NotificationSettings{
		SessionID:        sessionID,
		Enabled:          r.Enabled,
		ChatID:           r.ChatID,
		BotToken:         r.BotToken,
		NotifyOnComplete: r.NotifyOnComplete,
		NotifyOnStart:    r.NotifyOnStart,
		CustomMessage:    r.CustomMessage,
	}
}

// NotificationSettingsResponse hides the bot token
type NotificationSettingsResponse struct {
	Enabled          bool   `json:"enabled"`
	ChatID           string `json:"chatId"`
	HasBotToken      bool   `json:"hasBotToken"`
	NotifyOnComplete bool   `json:"notifyOnComplete"`
	NotifyOnStart    bool   `json:"notifyOnStart"`
	CustomMessage    string `json:"customMessage"`
	TestSent         *bool  `json:"testSent,omitempty"`
	TestError        string `json:"testError,omitempty"`
}

// ToNotificationSettingsResponse converts settings for API responses
func ToNotificationSettingsResponse(s models.NotificationSettings) NotificationSettingsResponse {
	return NotificationSettingsResponse{
		Enabled:          s.Enabled,
		ChatID:           s.ChatID,
		HasBotToken:      s.BotToken != "",
		NotifyOnComplete: s.NotifyOnComplete,
		NotifyOnStart:    s.NotifyOnStart,
		CustomMessage:    s.CustomMessage,
	}
}
