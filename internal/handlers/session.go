package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/dto"
	apierrors "github.com/yukikurage/chainboard/internal/errors"
	"github.com/yukikurage/chainboard/internal/repository"
	"github.com/yukikurage/chainboard/internal/utils"
)

type SessionHandler struct {
	store repository.TaskRepository
}

func NewSessionHandler(store repository.TaskRepository) *SessionHandler {
	return &SessionHandler{store: store}
}

// NewSession issues a fresh session id and binds it to the cookie
func (h *SessionHandler) NewSession(c *gin.Context) {
	sessionID := utils.GenerateSessionID()

	session := sessions.Default(c)
	session.Set(constants.ContextKeySessionID, sessionID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to create session")
		return
	}

	c.Header(constants.HeaderSessionID, sessionID)
	c.JSON(http.StatusCreated, dto.SessionResponse{SessionID: sessionID})
}

// Stats lists stored sessions with their task counts
func (h *SessionHandler) Stats(c *gin.Context) {
	params := utils.StatsPageFromQuery(c)

	stats, total, err := h.store.Stats(c.Request.Context(), params)
	if err != nil {
		log.Printf("failed to load session stats: %v", err)
		apierrors.InternalError(c, "Failed to load session stats")
		return
	}

	c.JSON(http.StatusOK, dto.SessionStatsResponse{
		TotalSessions: total,
		Sessions:      stats,
		Pagination:    params.Response(total),
		Timestamp:     time.Now().UTC(),
	})
}
