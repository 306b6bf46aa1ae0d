package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	"github.com/noah-isme/educenter-crm-api/pkg/middleware/requestid"
)

func TestAuditRecordsAuthenticatedWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	authenticate := func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			c.Set(ContextUserKey, admin)
		}
	}

	r := gin.New()
	r.Use(requestid.Middleware(), authenticate, Audit(zap.New(core)))
	r.PATCH("/events/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/events/:id/status", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/events/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, path string, authed bool) {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("X-Request-ID", "req-1")
		if authed {
			req.Header.Set("Authorization", "Bearer x")
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	send(http.MethodPatch, "/events/ev-1", true)
	send(http.MethodPost, "/events/ev-1/status", true)
	send(http.MethodGet, "/events/ev-1", true)
	send(http.MethodPatch, "/events/ev-1", false)

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "admin-1", fields["user_id"])
	assert.Equal(t, "/events/:id", fields["route"])
	assert.Equal(t, "ev-1", fields["resource_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var meta map[string]interface{}
	r.Use(requestid.Middleware(), WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, "abc", meta["request_id"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")
}

func TestSetCacheHitWithoutMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetCacheHit(c, false)
	assert.Equal(t, map[string]interface{}{"cache_hit": false}, ExtractMeta(c))
}
