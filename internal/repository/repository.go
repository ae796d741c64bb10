package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/utils"
)

// ErrNotFound is returned when a record is unknown to the session.
var ErrNotFound = errors.New("record not found")

// TaskRepository defines session-scoped task persistence. No operation can
// see another session's records.
type TaskRepository interface {
	// List returns every task of the session ordered by creation
	List(ctx context.Context, sessionID string) ([]models.Task, error)

	// Put inserts or replaces a task
	Put(ctx context.Context, sessionID string, task models.Task) (*models.Task, error)

	// Patch applies fn to the stored task and saves the result
	Patch(ctx context.Context, sessionID string, id int64, fn func(*models.Task)) (*models.Task, error)

	// Delete removes a task and returns what was removed
	Delete(ctx context.Context, sessionID string, id int64) (*models.Task, error)

	// ReplaceAll swaps the session's whole collection
	ReplaceAll(ctx context.Context, sessionID string, tasks []models.Task) error

	// DeleteAll empties the session
	DeleteAll(ctx context.Context, sessionID string) error

	// LastModified returns the time of the session's last write
	LastModified(ctx context.Context, sessionID string) (time.Time, error)

	// Stats lists per-session counters, paginated
	Stats(ctx context.Context, params utils.PaginationParams) ([]SessionStats, int64, error)
}

// SettingsRepository persists per-session notification settings.
type SettingsRepository interface {
	// Get returns ErrNotFound when the session never saved settings
	Get(ctx context.Context, sessionID string) (*models.NotificationSettings, error)

	// Save inserts or replaces the settings
	Save(ctx context.Context, settings models.NotificationSettings) error
}

// SessionStats summarizes one session in the store.
type SessionStats struct {
	SessionID string    `json:"sessionId"`
	TaskCount int64     `json:"taskCount"`
	LastSync  time.Time `json:"lastSync"`
}
