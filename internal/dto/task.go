package dto

import (
	"github.com/yukikurage/chainboard/internal/engine"
	"github.com/yukikurage/chainboard/internal/models"
)

// CreateTaskRequest is the body of POST /api/tasks. Every field is optional.
type CreateTaskRequest struct {
	Title                 string           `json:"title"`
	Description           string           `json:"description"`
	Position              *models.Position `json:"position"`
	BackgroundColor       string           `json:"backgroundColor"`
	Tags                  []string         `json:"tags"`
	Mode                  models.TaskMode  `json:"mode" binding:"omitempty,oneof=timer alarm"`
	Time                  string           `json:"time"`
	AlarmTime             string           `json:"alarmTime"`
	AlarmDate             string           `json:"alarmDate"`
	TelegramNotifications bool             `json:"telegramNotifications"`
}

// ToNewTask converts the request into engine input
func (r CreateTaskRequest) ToNewTask() engine.NewTask {
	return engine.NewTask{
		Title:           r.Title,
		Description:     r.Description,
		Position:        r.Position,
		BackgroundColor: r.BackgroundColor,
		Tags:            r.Tags,
		Mode:            r.Mode,
		Time:            r.Time,
		AlarmTime:       r.AlarmTime,
		AlarmDate:       r.AlarmDate,
		RemoteNotify:    r.TelegramNotifications,
	}
}

// UpdateTaskRequest is the body of PUT /api/tasks/:id. Only user fields can
// be edited.
type UpdateTaskRequest struct {
	Title                 *string          `json:"title" binding:"omitempty,max=255"`
	Description           *string          `json:"description"`
	BackgroundColor       *string          `json:"backgroundColor" binding:"omitempty,max=32"`
	Tags                  *[]string        `json:"tags"`
	Position              *models.Position `json:"position"`
	TelegramNotifications *bool            `json:"telegramNotifications"`
}

// ToTaskEdit converts the request into engine input
func (r UpdateTaskRequest) ToTaskEdit() engine.TaskEdit {
	return engine.TaskEdit{
		Title:           r.Title,
		Description:     r.Description,
		BackgroundColor: r.BackgroundColor,
		Tags:            r.Tags,
		Position:        r.Position,
		RemoteNotify:    r.TelegramNotifications,
	}
}

// BatchUpdate is one entry of a batch edit
type BatchUpdate struct {
	ID   int64             `json:"id" binding:"required"`
	Data UpdateTaskRequest `json:"data"`
}

// BatchUpdateRequest is the body of PUT /api/tasks/batch
type BatchUpdateRequest struct {
	Updates []BatchUpdate `json:"updates" binding:"required,dive"`
}

// BatchUpdateResponse reports a batch edit. Unknown ids are skipped.
type BatchUpdateResponse struct {
	Success      bool `json:"success"`
	UpdatedCount int  `json:"updatedCount"`
}

// SetTimeRequest is the body of PUT /api/tasks/:id/time
type SetTimeRequest struct {
	Time string `json:"time" binding:"required"`
}

// SetAlarmRequest is the body of PUT /api/tasks/:id/alarm
type SetAlarmRequest struct {
	Time string `json:"time" binding:"required"`
	Date string `json:"date"`
}

// SyncRequest is the body of POST /api/tasks/sync
type SyncRequest struct {
	Tasks []models.Task `json:"tasks" binding:"required"`
}

// SyncResponse reports a bulk replace
type SyncResponse struct {
	Success     bool   `json:"success"`
	SyncedCount int    `json:"syncedCount"`
	Message     string `json:"message"`
}

// DeleteTaskResponse reports a removed task
type DeleteTaskResponse struct {
	Success     bool        `json:"success"`
	DeletedTask models.Task `json:"deletedTask"`
	Message     string      `json:"message"`
}

// MessageResponse is a generic success body
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GenerateTasksRequest is the body of POST /api/tasks/generate. With Create
// set the suggestions are added to the board; with Chain also set they are
// linked in order.
type GenerateTasksRequest struct {
	Text   string `json:"text" binding:"required"`
	Create bool   `json:"create"`
	Chain  bool   `json:"chain"`
}
