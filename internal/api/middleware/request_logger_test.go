package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedRouter(t *testing.T) (*gin.Engine, *test.Hook) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(l))
	r.GET("/sessions/:session_id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.POST("/step3", func(c *gin.Context) {
		c.Set(SessionKey, "from-body")
		c.Status(http.StatusInternalServerError)
	})
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })
	return r, hook
}

func TestRequestLogger_EchoesRequestID(t *testing.T) {
	r, hook := newLoggedRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "req-42", entry.Data[RequestIDKey])
	assert.Equal(t, "/ok", entry.Data["route"])
	assert.Equal(t, 4, entry.Data["bytes"])
}

func TestRequestLogger_GeneratesRequestID(t *testing.T) {
	r, _ := newLoggedRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestLogger_SessionAndLevel(t *testing.T) {
	r, hook := newLoggedRouter(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/s1", nil))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "s1", entry.Data[SessionKey])

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/step3", nil))
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "from-body", entry.Data[SessionKey])
}
