package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-catalog-service/config"
	"github.com/tnqbao/gau-catalog-service/service/servicetest"
)

func contextFrom(remoteAddr string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = remoteAddr
	return c
}

func TestIPAllowlistPolicy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		ips     []string
		remote  string
		allowed bool
	}{
		{name: "empty list admits loopback", remote: "127.0.0.1:4000", allowed: true},
		{name: "empty list admits ipv6 loopback", remote: "[::1]:4000", allowed: true},
		{name: "empty list rejects others", remote: "10.0.0.7:4000", allowed: false},
		{name: "listed ip", ips: []string{"10.0.0.7"}, remote: "10.0.0.7:4000", allowed: true},
		{name: "unlisted ip", ips: []string{"10.0.0.7"}, remote: "10.0.0.8:4000", allowed: false},
		{name: "list replaces loopback default", ips: []string{"10.0.0.7"}, remote: "127.0.0.1:4000", allowed: false},
		{name: "garbage entries ignored", ips: []string{"nope", "10.0.0.7"}, remote: "10.0.0.7:4000", allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, IPAllowlistPolicy(tt.ips)(contextFrom(tt.remote)))
		})
	}
}

func TestAdminMiddlewareRejectsWithForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AdminMiddleware(func(*gin.Context) bool { return false }, servicetest.Logger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.EnvConfig{}
	cfg.JWT.SecretKey = "secret"

	r := gin.New()
	r.POST("/mutate", AuthMiddleware(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})

	userID := uuid.NewString()
	valid := signedToken(t, "secret", jwt.MapClaims{"user_id": userID, "exp": time.Now().Add(time.Hour).Unix()})
	expired := signedToken(t, "secret", jwt.MapClaims{"user_id": userID, "exp": time.Now().Add(-time.Hour).Unix()})
	foreign := signedToken(t, "other", jwt.MapClaims{"user_id": userID})
	noUser := signedToken(t, "secret", jwt.MapClaims{"role": "admin"})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing token", status: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + valid, status: http.StatusOK},
		{name: "expired token", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, status: http.StatusUnauthorized},
		{name: "missing user id claim", header: "Bearer " + noUser, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID, rec.Body.String())
			}
		})
	}
}

func TestAuthMiddlewarePassesWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/mutate", AuthMiddleware(&config.EnvConfig{}), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mutate", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &config.EnvConfig{}
	cfg.CORS.AllowDomains = "https://a.example, https://b.example,,"
	cfg.CORS.GlobalDomain = "https://catalog.example"

	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://catalog.example"}, allowedOrigins(cfg))
	assert.Empty(t, allowedOrigins(&config.EnvConfig{}))
}
