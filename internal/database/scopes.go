package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/chainboard/internal/utils"
)

// ForSession restricts a query to one session's rows
func ForSession(sessionID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("session_id = ?", sessionID)
	}
}

// SessionStatsPage groups task rows per session in session id order and
// selects one page of the groups.
func SessionStatsPage(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select("session_id, COUNT(*) AS task_count").
			Group("session_id").
			Order("session_id ASC").
			Offset(params.Offset).
			Limit(params.Limit)
	}
}
