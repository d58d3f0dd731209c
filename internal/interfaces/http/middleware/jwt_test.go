package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/channelpilot/backend/internal/infrastructure/auth"
	"github.com/channelpilot/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthTestEngine(svc *auth.JWTService) (*gin.Engine, *string) {
	var seenUserID string
	engine := gin.New()
	engine.Use(JWTAuth(svc))
	engine.GET("/protected", func(c *gin.Context) {
		seenUserID = GetJWTUserID(c)
		c.Status(http.StatusOK)
	})
	return engine, &seenUserID
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-32-characters-long",
		Issuer: "channelpilot-test",
	})
}

func TestJWTAuth(t *testing.T) {
	svc := testJWTService()

	t.Run("valid token passes and exposes the user id", func(t *testing.T) {
		userID := uuid.New()
		token, err := svc.IssueToken(userID, "ops@example.com", time.Hour)
		require.NoError(t, err)

		engine, seenUserID := newAuthTestEngine(svc)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), *seenUserID)
	})

	t.Run("missing header returns 401", func(t *testing.T) {
		engine, _ := newAuthTestEngine(svc)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-bearer scheme returns 401", func(t *testing.T) {
		engine, _ := newAuthTestEngine(svc)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token returns 401 with expired code", func(t *testing.T) {
		token, err := svc.IssueToken(uuid.New(), "", -time.Minute)
		require.NoError(t, err)

		engine, _ := newAuthTestEngine(svc)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_TOKEN_EXPIRED")
	})

	t.Run("token from another issuer returns 401", func(t *testing.T) {
		other := auth.NewJWTService(config.JWTConfig{
			Secret: "another-secret-key-32-chars-long!",
			Issuer: "somewhere-else",
		})
		token, err := other.IssueToken(uuid.New(), "", time.Hour)
		require.NoError(t, err)

		engine, _ := newAuthTestEngine(svc)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
