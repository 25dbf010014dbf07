package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calldoc/backend/internal/auth"
)

func newRouter(jwtService *auth.JWTService, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://console.local"))
	handlers := []gin.HandlerFunc{JWT(jwtService)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextUserID).(uuid.UUID).String())
	})
	r.POST("/recordings/:id/pause", handlers...)
	return r
}

func TestJWT(t *testing.T) {
	jwtService := auth.NewJWTService("secret", "calldoc", 1)
	userID := uuid.New()
	token, err := jwtService.Generate(userID, "agent@example.com", "agent")
	require.NoError(t, err)
	r := newRouter(jwtService)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/recordings/x/pause", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	jwtService := auth.NewJWTService("secret", "calldoc", 1)
	r := newRouter(jwtService, "admin", "supervisor")

	for role, status := range map[string]int{"agent": http.StatusForbidden, "supervisor": http.StatusOK, "admin": http.StatusOK} {
		token, err := jwtService.Generate(uuid.New(), role+"@example.com", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/recordings/x/pause", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, role)
	}
}

func TestCORS(t *testing.T) {
	r := newRouter(auth.NewJWTService("secret", "calldoc", 1))

	req := httptest.NewRequest(http.MethodOptions, "/recordings/x/pause", nil)
	req.Header.Set("Origin", "http://console.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://console.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/recordings/x/pause", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLogger_RecordsCallerAndRecording(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	jwtService := auth.NewJWTService("secret", "calldoc", 1)
	userID := uuid.New()
	token, err := jwtService.Generate(userID, "agent@example.com", auth.RoleAgent)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.POST("/recordings/:id/pause", JWT(jwtService), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/recordings/rec-1/pause", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "rec-1", fields["recording_id"])
	assert.Equal(t, userID.String(), fields["user_id"])
	assert.Equal(t, "/recordings/:id/pause", fields["route"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}
