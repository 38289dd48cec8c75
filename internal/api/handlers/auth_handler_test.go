package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/argus-sec/argus/internal/api/middleware"
	"github.com/argus-sec/argus/internal/config"
	"github.com/argus-sec/argus/internal/models"
	"github.com/argus-sec/argus/internal/services"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func setupAuthTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.WhitelistRule{}, &models.AuditEvent{}))

	gin.SetMode(gin.TestMode)
	router := gin.New()

	auditService := services.NewAuditService(db, "")
	authService := services.NewAuthService(db, testConfig())
	handler := NewAuthHandler(authService, auditService)
	authMiddleware := middleware.AuthMiddleware(authService, auditService)

	router.POST("/auth/register", handler.Register)
	router.POST("/auth/login", handler.Login)
	router.POST("/auth/refresh-token", handler.Refresh)
	router.POST("/auth/logout", authMiddleware, handler.Logout)
	router.GET("/auth/me", authMiddleware, handler.Me)

	return router, db
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, router *gin.Engine) (string, string) {
	w := postJSON(router, "/auth/register", map[string]interface{}{
		"name":     "Test User",
		"email":    "test@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(router, "/auth/login", map[string]interface{}{
		"email":    "test@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tokens services.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Tokens.AccessToken)
	require.NotEmpty(t, resp.Tokens.RefreshToken)
	return resp.Tokens.AccessToken, resp.Tokens.RefreshToken
}

func TestAuthHandler_Register(t *testing.T) {
	router, db := setupAuthTestRouter(t)

	tests := []struct {
		name       string
		payload    map[string]interface{}
		wantStatus int
	}{
		{
			name: "register successfully",
			payload: map[string]interface{}{
				"name": "Test User", "email": "test@example.com", "password": "password123",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			payload: map[string]interface{}{
				"name": "Other", "email": "test@example.com", "password": "password123",
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "invalid email",
			payload: map[string]interface{}{
				"name": "X", "email": "not-an-email", "password": "password123",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "short password",
			payload: map[string]interface{}{
				"name": "X", "email": "x@example.com", "password": "short",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown role",
			payload: map[string]interface{}{
				"name": "X", "email": "x@example.com", "password": "password123", "role": "superuser",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/auth/register", tt.payload)
			assert.Equal(t, tt.wantStatus, w.Code)

			if w.Code == http.StatusCreated {
				// Password material never leaks into the response
				assert.NotContains(t, w.Body.String(), "password_hash")

				var event models.AuditEvent
				assert.NoError(t, db.Where("event_type = ?", models.EventUserRegister).
					First(&event).Error)
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	router, db := setupAuthTestRouter(t)
	registerAndLogin(t, router)

	// Wrong password gets a generic 401 and an AUTH_FAILURE event
	w := postJSON(router, "/auth/login", map[string]interface{}{
		"email":    "test@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	var n int64
	require.NoError(t, db.Model(&models.AuditEvent{}).
		Where("event_type = ?", models.EventAuthFailure).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	// Successful login leaves a USER_LOGIN event and sets both cookies
	w = postJSON(router, "/auth/login", map[string]interface{}{
		"email":    "test@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	names := make(map[string]bool)
	for _, c := range cookies {
		names[c.Name] = true
		assert.True(t, c.HttpOnly)
	}
	assert.True(t, names["accessToken"])
	assert.True(t, names["refreshToken"])

	require.NoError(t, db.Model(&models.AuditEvent{}).
		Where("event_type = ?", models.EventUserLogin).Count(&n).Error)
	assert.GreaterOrEqual(t, n, int64(1))
}

func TestAuthHandler_Refresh_RotationAndReplay(t *testing.T) {
	router, _ := setupAuthTestRouter(t)
	_, refreshA := registerAndLogin(t, router)

	// First exchange succeeds
	w := postJSON(router, "/auth/refresh-token", map[string]interface{}{
		"refresh_token": refreshA,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tokens services.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	refreshB := resp.Tokens.RefreshToken
	assert.NotEqual(t, refreshA, refreshB)

	// Replaying the superseded token fails
	w = postJSON(router, "/auth/refresh-token", map[string]interface{}{
		"refresh_token": refreshA,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The fresh token still works
	w = postJSON(router, "/auth/refresh-token", map[string]interface{}{
		"refresh_token": refreshB,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	w := postJSON(router, "/auth/refresh-token", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_LogoutRevokesRefresh(t *testing.T) {
	router, _ := setupAuthTestRouter(t)
	access, refresh := registerAndLogin(t, router)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The refresh token stored server-side is gone
	w = postJSON(router, "/auth/refresh-token", map[string]interface{}{
		"refresh_token": refresh,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Me(t *testing.T) {
	router, _ := setupAuthTestRouter(t)
	access, _ := registerAndLogin(t, router)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "test@example.com", user.Email)

	// Without a credential
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
