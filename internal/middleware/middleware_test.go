package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubResolver map[string]*models.Caller

func (s stubResolver) Resolve(_ context.Context, raw string) (*models.Caller, error) {
	switch raw {
	case "deleted":
		return nil, apperrors.NotFoundf("user 9")
	case "broken":
		return nil, context.DeadlineExceeded
	}
	if c, ok := s[raw]; ok {
		return c, nil
	}
	return nil, apperrors.ErrUnauthenticated
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())

	resolver := stubResolver{
		"user":  {UserID: 1, Email: "u@x.io", Role: models.RoleUser},
		"admin": {UserID: 2, Email: "a@x.io", Role: models.RoleAdmin},
	}

	api := r.Group("/api", BearerAuth(resolver))
	api.GET("/me", func(c *gin.Context) {
		caller, _ := CallerFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": caller.UserID})
	})
	api.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/slow", Timeout(10*time.Millisecond), func(c *gin.Context) {
		<-c.Request.Context().Done()
		c.Status(http.StatusGatewayTimeout)
	})
	return r
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAuth(t *testing.T) {
	r := setupRouter()

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "garbage", http.StatusUnauthorized},
		{"deleted identity", "deleted", http.StatusNotFound},
		{"store failure", "broken", http.StatusInternalServerError},
		{"valid", "user", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, "/api/me", tt.token)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := setupRouter()

	assert.Equal(t, http.StatusForbidden, do(r, "/api/admin", "user").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/api/admin", "admin").Code)
}

func TestRequestIDHeader(t *testing.T) {
	r := setupRouter()

	w := do(r, "/api/me", "user")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req, _ := http.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer user")
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := setupRouter()

	w := do(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestTimeout(t *testing.T) {
	r := setupRouter()

	w := do(r, "/slow", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
