package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/engine"
	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/notify"
	"github.com/yukikurage/chainboard/internal/repository"
)

var (
	ErrSettingsIncomplete = errors.New("chat id and bot token are required to enable notifications")
)

// SettingsService manages per-session notification settings.
type SettingsService struct {
	repo       repository.SettingsRepository
	manager    *engine.Manager
	dispatcher notify.Dispatcher
	timeout    time.Duration
}

// SaveResult reports the saved settings and the outcome of the test message.
type SaveResult struct {
	Settings  models.NotificationSettings
	TestSent  bool
	TestError string
}

func NewSettingsService(repo repository.SettingsRepository, manager *engine.Manager, dispatcher notify.Dispatcher, timeout time.Duration) *SettingsService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SettingsService{
		repo:       repo,
		manager:    manager,
		dispatcher: dispatcher,
		timeout:    timeout,
	}
}

// Get returns the settings in effect for the session
func (s *SettingsService) Get(ctx context.Context, sessionID string) (models.NotificationSettings, error) {
	board, err := s.manager.Board(ctx, sessionID)
	if err != nil {
		return models.NotificationSettings{}, err
	}
	return board.Settings(), nil
}

// Save persists the settings, applies them to the session's board and, when
// the channel is enabled, sends a test message. A failed test message does
// not undo the save.
func (s *SettingsService) Save(ctx context.Context, sessionID string, in models.NotificationSettings) (*SaveResult, error) {
	board, err := s.manager.Board(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Responses never echo the token, so an omitted one keeps the saved value
	if in.BotToken == "" {
		in.BotToken = board.Settings().BotToken
	}
	if in.Enabled && !in.Configured() {
		return nil, ErrSettingsIncomplete
	}

	in.SessionID = sessionID
	if in.CustomMessage == "" {
		in.CustomMessage = constants.DefaultCompletionMessage
	}
	in.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, in); err != nil {
		return nil, err
	}
	board.ApplySettings(in)

	result := &SaveResult{Settings: in}
	if !in.Enabled {
		return result, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(sendCtx, in, constants.TestNotificationMessage); err != nil {
		log.Printf("session=%s test notification failed: %v", sessionID, err)
		result.TestError = err.Error()
		return result, nil
	}
	result.TestSent = true

	return result, nil
}
