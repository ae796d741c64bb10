// Package notify delivers task completion and start messages.
package notify

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/models"
)

// ErrChannelNotConfigured is returned when settings lack a chat or token.
var ErrChannelNotConfigured = errors.New("notification channel not configured")

// Dispatcher sends a message through a session's remote channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, settings models.NotificationSettings, message string) error
}

// Alerter raises a local alert for a ringing alarm.
type Alerter interface {
	Alert(sessionID string, task models.Task)
}

// FormatMessage substitutes the task title into a message template. An empty
// template falls back to the default completion message.
func FormatMessage(template, title string) string {
	if template == "" {
		template = constants.DefaultCompletionMessage
	}
	return strings.ReplaceAll(template, constants.TitlePlaceholder, title)
}

// LogAlerter writes alerts to the process log.
type LogAlerter struct{}

func (LogAlerter) Alert(sessionID string, task models.Task) {
	body := task.Description
	if body == "" {
		body = "Your alarm is ringing!"
	}
	log.Printf("session=%s task=%d Alarm: %s - %s", sessionID, task.ID, task.Title, body)
}

// NopDispatcher drops every message.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, models.NotificationSettings, string) error {
	return nil
}
