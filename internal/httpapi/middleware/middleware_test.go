package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/codesensei/internal/auth"
	"github.com/suPer8Hu/codesensei/internal/ratelimit"
	"go.uber.org/zap"
)

const secret = "mw-secret"

func init() { gin.SetMode(gin.TestMode) }

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.Use(mw...)
	r.GET("/who", func(c *gin.Context) {
		uid, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"uid": uid})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newEngine(AuthRequired(secret))

	w := do(r, "/who", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)

	w = do(r, "/who", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := auth.SignJWT(7, secret, time.Hour)
	require.NoError(t, err)
	w = do(r, "/who", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":7}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	w := do(newEngine(), "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"internal error"`)
}

func TestRateLimit(t *testing.T) {
	r := newEngine(AuthRequired(secret), RateLimit(ratelimit.NewMemory(2, time.Hour), zap.NewNop()))
	tok, err := auth.SignJWT(9, secret, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(r, "/who", tok).Code)
	assert.Equal(t, http.StatusOK, do(r, "/who", tok).Code)
	w := do(r, "/who", tok)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests, slow down","code":42901}`, w.Body.String())
}
