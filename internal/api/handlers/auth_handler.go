package handlers

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/argus-sec/argus/internal/api/middleware"
	"github.com/argus-sec/argus/internal/metrics"
	"github.com/argus-sec/argus/internal/models"
	"github.com/argus-sec/argus/internal/services"
)

const refreshTokenCookie = "refreshToken"

type AuthHandler struct {
	authService  *services.AuthService
	auditService *services.AuditService
}

func NewAuthHandler(authService *services.AuthService, auditService *services.AuditService) *AuthHandler {
	return &AuthHandler{authService: authService, auditService: auditService}
}

// isProduction checks if we're running in production mode
func isProduction() bool {
	env := os.Getenv("ARGUS_ENV")
	return env == "production" || env == "prod"
}

// setSecureCookie sets an auth cookie with security best practices
// - HttpOnly: prevents JavaScript access (XSS protection)
// - Secure: only sent over HTTPS (in production)
// - SameSite=Strict: prevents CSRF attacks
func setSecureCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", isProduction(), true)
}

func clearSecureCookie(c *gin.Context, name string) {
	setSecureCookie(c, name, "", -1)
}

func setTokenCookies(c *gin.Context, pair services.TokenPair) {
	setSecureCookie(c, middleware.AccessTokenCookie, pair.AccessToken,
		int(time.Until(pair.AccessExpiresAt).Seconds()))
	setSecureCookie(c, refreshTokenCookie, pair.RefreshToken,
		int(time.Until(pair.RefreshExpiresAt).Seconds()))
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Register(req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrMissingFields), errors.Is(err, services.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.auditService.RecordBestEffort(&models.AuditEvent{
				EventType: models.EventSystemError,
				SourceIP:  c.ClientIP(),
				Details:   services.Detail(map[string]interface{}{"op": "register", "error": err.Error()}),
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		}
		return
	}

	h.auditService.RecordBestEffort(&models.AuditEvent{
		EventType:  models.EventUserRegister,
		ActorID:    &user.ID,
		SourceIP:   c.ClientIP(),
		EntityID:   &user.ID,
		EntityKind: models.EntityUser,
		Details:    services.Detail(map[string]interface{}{"email": user.Email, "role": user.Role}),
	})

	c.JSON(http.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, pair, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			// Issuance-path fault, not a bad credential
			h.auditService.RecordBestEffort(&models.AuditEvent{
				EventType: models.EventSystemError,
				SourceIP:  c.ClientIP(),
				Details:   services.Detail(map[string]interface{}{"op": "login", "error": err.Error()}),
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}
		metrics.IncAuthFailure()
		h.auditService.RecordBestEffort(&models.AuditEvent{
			EventType: models.EventAuthFailure,
			SourceIP:  c.ClientIP(),
			Details:   services.Detail(map[string]interface{}{"email": req.Email, "note": "login rejected"}),
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	h.auditService.RecordBestEffort(&models.AuditEvent{
		EventType:  models.EventUserLogin,
		ActorID:    &user.ID,
		SourceIP:   c.ClientIP(),
		EntityID:   &user.ID,
		EntityKind: models.EntityUser,
		Details:    services.Detail(map[string]interface{}{"email": user.Email}),
	})

	// Cookies for browsers, body for API clients.
	setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"tokens": pair,
	})
}

// Refresh exchanges the presented refresh token for a fresh pair. A token
// that was already rotated away is treated as revoked.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&req)

	token := req.RefreshToken
	if token == "" {
		if cookie, err := c.Cookie(refreshTokenCookie); err == nil {
			token = cookie
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token required"})
		return
	}

	user, pair, err := h.authService.Rotate(token)
	if err != nil {
		metrics.IncAuthFailure()
		note := "invalid refresh token"
		if errors.Is(err, services.ErrTokenRevoked) {
			note = "revoked refresh token presented"
		}
		h.auditService.RecordBestEffort(&models.AuditEvent{
			EventType: models.EventAuthFailure,
			SourceIP:  c.ClientIP(),
			Details:   services.Detail(map[string]interface{}{"note": note}),
		})
		clearSecureCookie(c, middleware.AccessTokenCookie)
		clearSecureCookie(c, refreshTokenCookie)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"tokens": pair,
	})
}

// Logout revokes the stored refresh token and clears cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	if user := middleware.CurrentUser(c); user != nil {
		if err := h.authService.Revoke(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
			return
		}
	}

	clearSecureCookie(c, middleware.AccessTokenCookie)
	clearSecureCookie(c, refreshTokenCookie)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}
