package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/homedog/backend/models"
)

// bearerToken extracts the token from an "Authorization: Bearer X" header.
// Returns "" when the header is missing or malformed.
func bearerToken(c *gin.Context) string {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// truncateToken shortens a token for log output so secrets never land in logs
// whole.
func truncateToken(tok string) string {
	if tok == "" {
		return "none"
	}
	if len(tok) > 8 {
		return tok[:8] + "..."
	}
	return tok + "..."
}

// requireFleetToken enforces the shared fleet token on device-facing routes.
// Writes the 401 response itself and returns false on failure.
func requireFleetToken(c *gin.Context) bool {
	tok := bearerToken(c)
	if tok == cfg.BackendToken && tok != "" {
		return true
	}
	log.Printf("⚠️ [AUTH-401] %s %s from %s token=%s", c.Request.Method, c.Request.URL.Path, c.ClientIP(), truncateToken(tok))
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	return false
}

// uploadAuthorized checks an upload token against the global upload token and
// the device's own token, if one is assigned. Unknown devices can still upload
// with the global token.
func uploadAuthorized(tok string, device *models.Device) bool {
	if tok == "" {
		return false
	}
	if tok == cfg.UploadToken && cfg.UploadToken != "" {
		return true
	}
	if device != nil && device.UploadToken != "" && tok == device.UploadToken {
		return true
	}
	return false
}
