package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRecovererReturnsJSON500(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(Recoverer(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rw.Body.String())
	assert.NotZero(t, logs.Len())
}

func TestRequestLoggerTagsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(requestid.New(), RequestLogger(zap.New(core), "/skip"))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/skip", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/skip", nil))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, rw.Header().Get("X-Request-ID"), entries[0].ContextMap()["requestId"])
		assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
	}
}
