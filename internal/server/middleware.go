package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

var (
	errMissingUser = errors.New("missing " + helpers.UserIDHeader + " header")
	errNotAdmin    = errors.New("caller is not an administrator")
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
		"user_id": c.GetString(helpers.UserIDKey),
	})
}

// UserIDMiddleware stores the caller identity on the context
func UserIDMiddleware(c *gin.Context) {
	if id := strings.TrimSpace(c.GetHeader(helpers.UserIDHeader)); id != "" {
		c.Set(helpers.UserIDKey, id)
	}
	c.Next()
}

// RequireUser rejects requests that carry no caller identity
func RequireUser(c *gin.Context) {
	if c.GetString(helpers.UserIDKey) == "" {
		utils.JSONError(c, http.StatusUnauthorized, errMissingUser, "authentication required")
		c.Abort()
		return
	}
	c.Next()
}

// RequireAdmin only lets the listed user IDs through. Run it after RequireUser.
func RequireAdmin(admins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(admins))
	for _, id := range admins {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(helpers.UserIDKey)]; !ok {
			utils.JSONError(c, http.StatusForbidden, errNotAdmin, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
