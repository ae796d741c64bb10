package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/dto"
	"github.com/yukikurage/chainboard/internal/engine"
	apierrors "github.com/yukikurage/chainboard/internal/errors"
	"github.com/yukikurage/chainboard/internal/export"
	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/services"
)

type TaskHandler struct {
	manager   *engine.Manager
	suggester services.TaskSuggester
}

func NewTaskHandler(manager *engine.Manager, suggester services.TaskSuggester) *TaskHandler {
	return &TaskHandler{
		manager:   manager,
		suggester: suggester,
	}
}

// ListTasks returns every task of the session
func (h *TaskHandler) ListTasks(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	setLastModified(c, h.manager.Store(), board.SessionID())
	c.JSON(http.StatusOK, board.Tasks())
}

// CreateTask adds a task with board defaults for omitted fields
func (h *TaskHandler) CreateTask(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	task, err := board.AddTask(req.ToNewTask())
	if err != nil {
		respondEngineError(c, err)
		return
	}

	setLastModified(c, h.manager.Store(), board.SessionID())
	c.JSON(http.StatusCreated, task)
}

// GetTask returns one task
func (h *TaskHandler) GetTask(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := board.Task(id)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask applies user edits
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	task, err := board.UpdateTask(id, req.ToTaskEdit())
	if err != nil {
		respondEngineError(c, err)
		return
	}

	setLastModified(c, h.manager.Store(), board.SessionID())
	c.JSON(http.StatusOK, task)
}

// BatchUpdate applies user edits to several tasks, skipping unknown ids
func (h *TaskHandler) BatchUpdate(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	updated := 0
	for _, u := range req.Updates {
		_, err := board.UpdateTask(u.ID, u.Data.ToTaskEdit())
		switch {
		case errors.Is(err, engine.ErrTaskNotFound):
			log.Printf("session=%s batch update skipped unknown task=%d", board.SessionID(), u.ID)
		case err != nil:
			log.Printf("session=%s batch update failed at task=%d: %v", board.SessionID(), u.ID, err)
			apierrors.InternalError(c, "Batch update failed")
			return
		default:
			updated++
		}
	}

	setLastModified(c, h.manager.Store(), board.SessionID())
	c.JSON(http.StatusOK, dto.BatchUpdateResponse{
		Success:      true,
		UpdatedCount: updated,
	})
}

// DeleteTask removes a task and its edges
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := board.DeleteTask(id)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeleteTaskResponse{
		Success:     true,
		DeletedTask: task,
		Message:     "Task deleted successfully",
	})
}

// ClearTasks removes every task of the session
func (h *TaskHandler) ClearTasks(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	board.ClearAll()
	log.Printf("session=%s cleared all tasks", board.SessionID())

	c.JSON(http.StatusOK, dto.MessageResponse{
		Success: true,
		Message: "All tasks cleared successfully",
	})
}

// SyncTasks replaces the session's collection
func (h *TaskHandler) SyncTasks(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid tasks data")
		return
	}

	tasks := board.ReplaceAll(req.Tasks)

	c.JSON(http.StatusOK, dto.SyncResponse{
		Success:     true,
		SyncedCount: len(tasks),
		Message:     "Tasks synced successfully",
	})
}

// ImportTasks replaces the session's collection from a backup
func (h *TaskHandler) ImportTasks(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	tasks, err := export.Decode(c.Request.Body)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	imported := board.ReplaceAll(tasks)

	c.JSON(http.StatusOK, dto.SyncResponse{
		Success:     true,
		SyncedCount: len(imported),
		Message:     "Tasks imported successfully",
	})
}

// ExportTasks downloads a backup of the session
func (h *TaskHandler) ExportTasks(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.Encode(&buf, board.SessionID(), board.Tasks(), now); err != nil {
		log.Printf("session=%s export failed: %v", board.SessionID(), err)
		apierrors.InternalError(c, "Export failed")
		return
	}

	filename := fmt.Sprintf("chainboard-backup-%s.json", now.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// GenerateTasks suggests tasks from free text using AI, optionally adding
// them to the board as a chain
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	var req dto.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	// Check if AI service is available
	if h.suggester == nil {
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
		return
	}

	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	suggestions, err := h.suggester.SuggestTasks(c.Request.Context(), req.Text)
	if err != nil {
		apierrors.InternalError(c, fmt.Sprintf("Failed to generate tasks: %v", err))
		return
	}

	created := []models.Task{}
	if req.Create {
		for _, s := range suggestions {
			task, err := board.AddTask(engine.NewTask{
				Title:       s.Title,
				Description: s.Description,
				Mode:        s.Mode,
				Time:        s.Time,
				AlarmTime:   s.AlarmTime,
				AlarmDate:   s.AlarmDate,
			})
			if err != nil {
				log.Printf("session=%s skipped suggestion %q: %v", board.SessionID(), s.Title, err)
				continue
			}
			if req.Chain && len(created) > 0 {
				if _, err := board.Link(created[len(created)-1].ID, task.ID, models.LinkSequential); err != nil {
					log.Printf("session=%s failed to chain suggestion %q: %v", board.SessionID(), s.Title, err)
				}
			}
			created = append(created, task)
		}
		if req.Chain && len(created) > 0 {
			if chain, err := board.Chain(created[0].ID); err == nil {
				created = chain
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":   suggestions,
		"created": created,
	})
}
