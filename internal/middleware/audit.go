package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/educenter-crm-api/pkg/middleware/requestid"
)

// Audit records who changed what. Only authenticated write requests are
// logged; reads are covered by the access log.
func Audit(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		claims, ok := Claims(c)
		if !ok {
			return
		}

		fields := []zap.Field{
			zap.String("user_id", claims.UserID),
			zap.String("role", string(claims.Role)),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", requestid.Value(c)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			logger.Warn("audit", fields...)
			return
		}
		logger.Info("audit", fields...)
	}
}
