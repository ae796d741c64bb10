package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yukikurage/chainboard/internal/constants"
	apierrors "github.com/yukikurage/chainboard/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// WebhookHandler answers bot updates inline. An empty secret hash accepts
// every caller.
type WebhookHandler struct {
	secretHash []byte
}

func NewWebhookHandler(secretHash string) *WebhookHandler {
	h := &WebhookHandler{}
	if secretHash != "" {
		h.secretHash = []byte(secretHash)
	}
	return h
}

// Telegram replies to /start with a welcome message and acknowledges the rest
func (h *WebhookHandler) Telegram(c *gin.Context) {
	if h.secretHash != nil {
		secret := c.GetHeader(constants.WebhookSecretHeader)
		if secret == "" || bcrypt.CompareHashAndPassword(h.secretHash, []byte(secret)) != nil {
			apierrors.Unauthorized(c, "Invalid webhook secret")
			return
		}
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		apierrors.BadRequest(c, "Invalid update")
		return
	}

	if msg := update.Message; msg != nil && msg.Chat != nil && strings.HasPrefix(strings.TrimSpace(msg.Text), "/start") {
		c.JSON(http.StatusOK, gin.H{
			"method":  "sendMessage",
			"chat_id": msg.Chat.ID,
			"text":    constants.WebhookWelcomeMessage,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
