package models

import (
	"time"

	"github.com/yukikurage/chainboard/internal/constants"
)

// NotificationSettings configures the remote message channel of a session.
type NotificationSettings struct {
	SessionID        string    `gorm:"primaryKey;type:varchar(64)" json:"-"`
	Enabled          bool      `json:"enabled"`
	ChatID           string    `gorm:"type:varchar(64)" json:"chatId"`
	BotToken         string    `gorm:"type:varchar(255)" json:"botToken"`
	NotifyOnComplete bool      `json:"notifyOnComplete"`
	NotifyOnStart    bool      `json:"notifyOnStart"`
	CustomMessage    string    `gorm:"type:text" json:"customMessage"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Configured reports whether the channel has enough to send a message.
func (s NotificationSettings) Configured() bool {
	return s.ChatID != "" && s.BotToken != ""
}

// DefaultNotificationSettings returns a disabled channel that would notify
// on completion once enabled.
func DefaultNotificationSettings(sessionID string) NotificationSettings {
	return NotificationSettings{
		SessionID:        sessionID,
		NotifyOnComplete: true,
		CustomMessage:    constants.DefaultCompletionMessage,
	}
}
