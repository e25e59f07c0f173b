package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator map[string]*service.Claims

func (s stubValidator) ValidateToken(tokenStr string) (*service.Claims, error) {
	claims, ok := s[tokenStr]
	if !ok {
		return nil, errors.New("bad token")
	}
	return claims, nil
}

func protectedRouter(perm model.Permission) *gin.Engine {
	auth := stubValidator{
		"writer":   {TokenType: service.TokenTypeAdmin, UserID: 1, Permissions: []string{"courses:write"}},
		"readonly": {TokenType: service.TokenTypeAdmin, UserID: 2},
		"other":    {TokenType: "student", UserID: 3},
	}
	r := gin.New()
	r.POST("/admin", RequireAdminJWT(auth), RequirePermission(perm), func(c *gin.Context) {
		c.String(http.StatusOK, "ok %d", GetClaims(c).UserID)
	})
	return r
}

func TestAdminAuthorization(t *testing.T) {
	r := protectedRouter(model.PermissionCoursesWrite)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"wrong audience", "Bearer other", http.StatusForbidden},
		{"missing permission", "Bearer readonly", http.StatusForbidden},
		{"granted", "bearer writer", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRateLimiterRefillsPerInterval(t *testing.T) {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(59 * time.Second)
	assert.False(t, rl.Allow("10.0.0.1"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRateLimiterMiddlewareRejects(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	body := strings.Repeat("course catalog ", 200)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) {
		// Two writes straddling the threshold must both end up compressed.
		c.Writer.WriteString(body[:512])
		c.Writer.WriteString(body[512:])
	})
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "tiny") })

	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "tiny", w.Body.String())
}

func TestBrotliSkipsEventStreams(t *testing.T) {
	r := gin.New()
	r.Use(Brotli())
	r.GET("/events", func(c *gin.Context) { c.String(http.StatusOK, strings.Repeat("x", 4096)) })

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Len(t, w.Body.String(), 4096)
}

func TestBrotliStaysRawAfterEarlyFlush(t *testing.T) {
	r := gin.New()
	r.Use(Brotli())
	r.GET("/stream", func(c *gin.Context) {
		c.Writer.WriteString("event: ping\n\n")
		c.Writer.Flush()
		c.Writer.WriteString(strings.Repeat("y", 2048))
	})

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "event: ping\n\n"+strings.Repeat("y", 2048), w.Body.String())
}

type recordedRequest struct {
	method, path string
	status       int
}

type recordingObserver struct{ got []recordedRequest }

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.got = append(o.got, recordedRequest{method, path, status})
}

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/courses/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []recordedRequest{
		{http.MethodGet, "/courses/:id", http.StatusOK},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, obs.got)
}
