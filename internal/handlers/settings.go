package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/dto"
	apierrors "github.com/yukikurage/chainboard/internal/errors"
	"github.com/yukikurage/chainboard/internal/middleware"
	"github.com/yukikurage/chainboard/internal/services"
)

type SettingsHandler struct {
	service *services.SettingsService
}

func NewSettingsHandler(service *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetNotifications returns the session's notification settings
func (h *SettingsHandler) GetNotifications(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		apierrors.BadRequest(c, "Session ID is required")
		return
	}

	settings, err := h.service.Get(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("session=%s failed to load settings: %v", sessionID, err)
		apierrors.ServiceUnavailable(c, "Settings store unavailable")
		return
	}

	c.JSON(http.StatusOK, dto.ToNotificationSettingsResponse(settings))
}

// SaveNotifications stores the settings and sends a test message when enabled
func (h *SettingsHandler) SaveNotifications(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		apierrors.BadRequest(c, "Session ID is required")
		return
	}

	var req dto.NotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.service.Save(c.Request.Context(), sessionID, req.ToModel(sessionID))
	if err != nil {
		if errors.Is(err, services.ErrSettingsIncomplete) {
			apierrors.BadRequest(c, "Chat ID and bot token are required")
			return
		}
		log.Printf("session=%s failed to save settings: %v", sessionID, err)
		apierrors.InternalError(c, "Failed to save settings")
		return
	}

	resp := dto.ToNotificationSettingsResponse(result.Settings)
	if result.Settings.Enabled {
		sent := result.TestSent
		resp.TestSent = &sent
		resp.TestError = result.TestError
	}
	c.JSON(http.StatusOK, resp)
}
