package engine

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/repository"
)

// Manager owns one Board per session and loads boards on first use.
type Manager struct {
	opts     Options
	settings repository.SettingsRepository

	mu     sync.Mutex
	boards map[string]*boardEntry
}

// boardEntry is a board being loaded or loaded. ready is closed once board
// or err is set.
type boardEntry struct {
	ready chan struct{}
	board *Board
	err   error
}

func (e *boardEntry) wait(ctx context.Context) (*Board, error) {
	select {
	case <-e.ready:
		return e.board, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NewManager creates a Manager whose boards share opts
func NewManager(opts Options, settings repository.SettingsRepository) *Manager {
	if settings == nil {
		settings = repository.NewMemorySettingsRepository()
	}
	return &Manager{
		opts:     opts.withDefaults(),
		settings: settings,
		boards:   make(map[string]*boardEntry),
	}
}

// Board returns the session's board, loading it from the store when needed.
// Loads run outside the manager lock; concurrent callers for the same
// session wait for the one load in flight.
func (m *Manager) Board(ctx context.Context, sessionID string) (*Board, error) {
	m.mu.Lock()
	if e, ok := m.boards[sessionID]; ok {
		m.mu.Unlock()
		return e.wait(ctx)
	}
	e := &boardEntry{ready: make(chan struct{})}
	m.boards[sessionID] = e
	m.mu.Unlock()

	b, err := NewBoard(ctx, sessionID, m.opts)
	if err == nil {
		b.ApplySettings(m.loadSettings(ctx, sessionID))
	}
	e.board, e.err = b, err
	close(e.ready)

	if err != nil {
		m.mu.Lock()
		if m.boards[sessionID] == e {
			delete(m.boards, sessionID)
		}
		m.mu.Unlock()
		return nil, err
	}
	return b, nil
}

func (m *Manager) loadSettings(ctx context.Context, sessionID string) models.NotificationSettings {
	s, err := m.settings.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("session=%s failed to load notification settings, using defaults: %v", sessionID, err)
		}
		return models.DefaultNotificationSettings(sessionID)
	}
	return *s
}

// Drop cancels a session's registrations and forgets its board. The next
// Board call reloads it from the store.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	e, ok := m.boards[sessionID]
	delete(m.boards, sessionID)
	m.mu.Unlock()

	if ok {
		e.close()
	}
}

// Close stops every board
func (m *Manager) Close() {
	m.mu.Lock()
	entries := m.boards
	m.boards = make(map[string]*boardEntry)
	m.mu.Unlock()

	for _, e := range entries {
		e.close()
	}
}

func (e *boardEntry) close() {
	<-e.ready
	if e.board != nil {
		e.board.Close()
	}
}

// Store returns the task store shared by every board
func (m *Manager) Store() repository.TaskRepository {
	return m.opts.Store
}
