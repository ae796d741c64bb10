package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/chainboard/internal/database"
	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// List returns every task of the session
func (r *GormTaskRepository) List(ctx context.Context, sessionID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Scopes(database.ForSession(sessionID)).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Put inserts or replaces a task
func (r *GormTaskRepository) Put(ctx context.Context, sessionID string, task models.Task) (*models.Task, error) {
	task.SessionID = sessionID
	task.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Patch loads the task, applies fn and saves it in one transaction
func (r *GormTaskRepository) Patch(ctx context.Context, sessionID string, id int64, fn func(*models.Task)) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND id = ?", sessionID, id).First(&task).Error; err != nil {
			return err
		}

		fn(&task)

		// Keys are immutable
		task.SessionID = sessionID
		task.ID = id

		return tx.Save(&task).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// Delete removes a task and returns the removed record
func (r *GormTaskRepository) Delete(ctx context.Context, sessionID string, id int64) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND id = ?", sessionID, id).First(&task).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ? AND id = ?", sessionID, id).Delete(&models.Task{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// ReplaceAll swaps the session's collection in a transaction
func (r *GormTaskRepository) ReplaceAll(ctx context.Context, sessionID string, tasks []models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(database.ForSession(sessionID)).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}

		now := time.Now()
		rows := make([]models.Task, len(tasks))
		for i, t := range tasks {
			rows[i] = t
			rows[i].SessionID = sessionID
			rows[i].UpdatedAt = now
		}
		return tx.CreateInBatches(&rows, 100).Error
	})
}

// DeleteAll removes every task of the session
func (r *GormTaskRepository) DeleteAll(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Scopes(database.ForSession(sessionID)).Delete(&models.Task{}).Error
}

// LastModified returns the most recent store write in the session, or the
// zero time for an empty session
func (r *GormTaskRepository) LastModified(ctx context.Context, sessionID string) (time.Time, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Select("updated_at").
		Scopes(database.ForSession(sessionID)).
		Order("updated_at DESC").
		Limit(1).
		Find(&task).Error
	if err != nil {
		return time.Time{}, err
	}
	return task.UpdatedAt, nil
}

// Stats lists task counts per session
func (r *GormTaskRepository) Stats(ctx context.Context, params utils.PaginationParams) ([]SessionStats, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Distinct("session_id").
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	type row struct {
		SessionID string
		TaskCount int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(database.SessionStatsPage(params)).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	stats := make([]SessionStats, 0, len(rows))
	for _, rw := range rows {
		last, err := r.LastModified(ctx, rw.SessionID)
		if err != nil {
			return nil, 0, err
		}
		stats = append(stats, SessionStats{
			SessionID: rw.SessionID,
			TaskCount: rw.TaskCount,
			LastSync:  last,
		})
	}

	return stats, total, nil
}
