package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/utils"
)

type memorySession struct {
	tasks    []models.Task
	lastSync time.Time
}

// MemoryTaskRepository keeps every session in process memory. Nothing
// survives a restart.
type MemoryTaskRepository struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	now      func() time.Time
}

// NewMemoryTaskRepository creates an empty in-memory TaskRepository
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (r *MemoryTaskRepository) session(sessionID string) *memorySession {
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &memorySession{}
		r.sessions[sessionID] = s
	}
	return s
}

func (r *MemoryTaskRepository) touch(s *memorySession) time.Time {
	now := r.now()
	s.lastSync = now
	return now
}

func (r *MemoryTaskRepository) List(_ context.Context, sessionID string) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return []models.Task{}, nil
	}
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out, nil
}

func (r *MemoryTaskRepository) Put(_ context.Context, sessionID string, task models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session(sessionID)
	task = task.Clone()
	task.SessionID = sessionID
	task.UpdatedAt = r.touch(s)

	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			out := task.Clone()
			return &out, nil
		}
	}
	s.tasks = append(s.tasks, task)
	out := task.Clone()
	return &out, nil
}

func (r *MemoryTaskRepository) Patch(_ context.Context, sessionID string, id int64, fn func(*models.Task)) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		next := s.tasks[i].Clone()
		fn(&next)
		next.SessionID = sessionID
		next.ID = id
		next.UpdatedAt = r.touch(s)
		s.tasks[i] = next
		out := next.Clone()
		return &out, nil
	}
	return nil, ErrNotFound
}

func (r *MemoryTaskRepository) Delete(_ context.Context, sessionID string, id int64) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			removed := s.tasks[i]
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			r.touch(s)
			return &removed, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryTaskRepository) ReplaceAll(_ context.Context, sessionID string, tasks []models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session(sessionID)
	now := r.touch(s)
	s.tasks = make([]models.Task, len(tasks))
	for i, t := range tasks {
		s.tasks[i] = t.Clone()
		s.tasks[i].SessionID = sessionID
		s.tasks[i].UpdatedAt = now
	}
	return nil
}

func (r *MemoryTaskRepository) DeleteAll(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session(sessionID)
	s.tasks = nil
	r.touch(s)
	return nil
}

func (r *MemoryTaskRepository) LastModified(_ context.Context, sessionID string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		return s.lastSync, nil
	}
	return time.Time{}, nil
}

func (r *MemoryTaskRepository) Stats(_ context.Context, params utils.PaginationParams) ([]SessionStats, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := int64(len(ids))
	start := params.Offset
	if start > len(ids) {
		start = len(ids)
	}
	end := len(ids)
	if params.Limit > 0 && start+params.Limit < end {
		end = start + params.Limit
	}

	stats := make([]SessionStats, 0, end-start)
	for _, id := range ids[start:end] {
		s := r.sessions[id]
		stats = append(stats, SessionStats{
			SessionID: id,
			TaskCount: int64(len(s.tasks)),
			LastSync:  s.lastSync,
		})
	}
	return stats, total, nil
}

// MemorySettingsRepository keeps notification settings in process memory.
type MemorySettingsRepository struct {
	mu       sync.Mutex
	settings map[string]models.NotificationSettings
}

// NewMemorySettingsRepository creates an empty in-memory SettingsRepository
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{settings: make(map[string]models.NotificationSettings)}
}

func (r *MemorySettingsRepository) Get(_ context.Context, sessionID string) (*models.NotificationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.settings[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemorySettingsRepository) Save(_ context.Context, settings models.NotificationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings.UpdatedAt = time.Now()
	r.settings[settings.SessionID] = settings
	return nil
}
