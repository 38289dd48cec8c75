package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/argus-sec/argus/internal/metrics"
	"github.com/argus-sec/argus/internal/models"
	"github.com/argus-sec/argus/internal/services"
)

// AccessTokenCookie is the http-only cookie carrying the access token for
// browser clients. API clients use the Authorization header instead.
const AccessTokenCookie = "accessToken"

// AuthMiddleware authenticates the request from the Authorization header or
// the access token cookie and places the principal in the request context
// under "userID", "role" and "user". audit may be nil in tests.
func AuthMiddleware(auth *services.AuthService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			recordAuthFailure(c, audit, "missing bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := auth.VerifyAccess(token)
		if err != nil {
			recordAuthFailure(c, audit, "invalid or expired access token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := auth.GetUserByID(claims.UserID)
		if err != nil || !user.Enabled {
			recordAuthFailure(c, audit, "token subject missing or disabled")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("role", user.Role)
		c.Set("user", user)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated principal carries one
// of the allowed roles. Must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get("role")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// CurrentUser returns the authenticated principal set by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	return ""
}

func recordAuthFailure(c *gin.Context, audit *services.AuditService, note string) {
	metrics.IncAuthFailure()
	if audit == nil {
		return
	}
	audit.RecordBestEffort(&models.AuditEvent{
		EventType: models.EventAuthFailure,
		SourceIP:  c.ClientIP(),
		Details: services.Detail(map[string]interface{}{
			"path": c.Request.URL.Path,
			"note": note,
		}),
	})
}
