package utils

import (
	"github.com/google/uuid"
	"github.com/yukikurage/chainboard/internal/constants"
)

// GenerateSessionID returns a fresh opaque session scope key
func GenerateSessionID() string {
	return constants.SessionIDPrefix + uuid.NewString()
}
