package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/constants"
	apierrors "github.com/yukikurage/chainboard/internal/errors"
	"github.com/yukikurage/chainboard/internal/utils"
)

const maxSessionIDLength = 64

// RequireSession resolves the session scope from the X-Session-ID header,
// the sessionId query parameter or the session cookie, in that order. A
// missing cookie session is created on first use.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(constants.HeaderSessionID)
		if sessionID == "" {
			sessionID = c.Query(constants.QuerySessionID)
		}

		if sessionID == "" {
			session := sessions.Default(c)
			if v, ok := session.Get(constants.ContextKeySessionID).(string); ok && v != "" {
				sessionID = v
			} else {
				sessionID = utils.GenerateSessionID()
				session.Set(constants.ContextKeySessionID, sessionID)
				if err := session.Save(); err != nil {
					apierrors.InternalError(c, "Failed to create session")
					c.Abort()
					return
				}
			}
		}

		if !validSessionID(sessionID) {
			apierrors.BadRequest(c, "Invalid session ID")
			c.Abort()
			return
		}

		// Store session ID in context for easy access in handlers
		c.Set(constants.ContextKeySessionID, sessionID)
		c.Header(constants.HeaderSessionID, sessionID)
		c.Next()
	}
}

// GetSessionID retrieves the current session ID from context
func GetSessionID(c *gin.Context) (string, bool) {
	v, exists := c.Get(constants.ContextKeySessionID)
	if !exists {
		return "", false
	}
	sessionID, ok := v.(string)
	return sessionID, ok && sessionID != ""
}

func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
