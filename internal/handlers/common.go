package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/engine"
	apierrors "github.com/yukikurage/chainboard/internal/errors"
	"github.com/yukikurage/chainboard/internal/middleware"
	"github.com/yukikurage/chainboard/internal/repository"
)

// boardFor resolves the session's board, writing an error response when it
// cannot be loaded.
func boardFor(c *gin.Context, manager *engine.Manager) (*engine.Board, bool) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		apierrors.BadRequest(c, "Session ID is required")
		return nil, false
	}

	board, err := manager.Board(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("session=%s failed to load board: %v", sessionID, err)
		apierrors.ServiceUnavailable(c, "Task store unavailable")
		return nil, false
	}
	return board, true
}

func parseTaskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierrors.BadRequest(c, "Invalid task ID")
		return 0, false
	}
	return id, true
}

// respondEngineError maps engine errors to API errors
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, engine.ErrInvalidTime),
		errors.Is(err, engine.ErrInvalidAlarm),
		errors.Is(err, engine.ErrInvalidLinkType):
		apierrors.InvalidFormat(c, err.Error())
	default:
		log.Printf("engine error: %v", err)
		apierrors.InternalError(c, "")
	}
}

// setLastModified stamps the session's last store write on the response.
// A store that cannot answer falls back to now.
func setLastModified(c *gin.Context, store repository.TaskRepository, sessionID string) {
	last, err := store.LastModified(c.Request.Context(), sessionID)
	if err != nil || last.IsZero() {
		last = time.Now()
	}
	c.Header("Last-Modified", last.UTC().Format(http.TimeFormat))
}
