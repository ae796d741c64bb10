package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/dto"
	"github.com/yukikurage/chainboard/internal/engine"
	apierrors "github.com/yukikurage/chainboard/internal/errors"
	"github.com/yukikurage/chainboard/internal/models"
)

// taskOp runs one board operation on the task named in the path
func (h *TaskHandler) taskOp(c *gin.Context, op func(*engine.Board, int64) (models.Task, error)) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := op(board, id)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// ToggleTimer starts or pauses a task
func (h *TaskHandler) ToggleTimer(c *gin.Context) {
	h.taskOp(c, (*engine.Board).ToggleTimer)
}

// ResetTimer restores a task's configured duration
func (h *TaskHandler) ResetTimer(c *gin.Context) {
	h.taskOp(c, (*engine.Board).ResetTimer)
}

// ToggleMode switches a task between timer and alarm
func (h *TaskHandler) ToggleMode(c *gin.Context) {
	h.taskOp(c, (*engine.Board).ToggleMode)
}

// SetTime replaces a task's countdown duration
func (h *TaskHandler) SetTime(c *gin.Context) {
	var req dto.SetTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	h.taskOp(c, func(b *engine.Board, id int64) (models.Task, error) {
		return b.SetCustomTime(id, req.Time)
	})
}

// SetAlarm replaces a task's alarm time and date
func (h *TaskHandler) SetAlarm(c *gin.Context) {
	var req dto.SetAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	h.taskOp(c, func(b *engine.Board, id int64) (models.Task, error) {
		return b.SetAlarmTime(id, req.Time, req.Date)
	})
}
