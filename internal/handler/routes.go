package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/educenter-crm-api/internal/middleware"
	"github.com/noah-isme/educenter-crm-api/internal/models"
)

// Routes bundles the handlers mounted under the API prefix.
type Routes struct {
	Events  *EventHandler
	Reports *ReportHandler
	Metrics *MetricsHandler
	Tokens  middleware.TokenValidator
	Logger  *zap.Logger
}

// Register mounts health and metrics endpoints at the root and every domain route under prefix.
// All prefixed routes require a bearer token.
func (r Routes) Register(engine *gin.Engine, prefix string) {
	if r.Metrics != nil {
		engine.GET("/health", r.Metrics.Health)
		engine.GET("/ready", r.Metrics.Ready)
		engine.GET("/metrics", r.Metrics.Prometheus)
	}

	api := engine.Group(prefix)
	api.Use(middleware.JWT(r.Tokens), middleware.WithResponseMeta(), middleware.Audit(r.Logger))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleTeacher)
	admins := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	events := api.Group("/events", staff)
	events.GET("", r.Events.List)
	events.POST("", r.Events.Create)
	events.GET("/:id", r.Events.Get)
	events.PATCH("/:id", r.Events.Update)
	events.POST("/:id/status", r.Events.Transition)

	reports := api.Group("/reports", admins)
	reports.GET("/summary", r.Reports.Summary)
	reports.GET("/summary/export", r.Reports.Export)
	reports.GET("/cancel-reasons", r.Reports.CancelReasons)

	api.GET("/teachers/:id/schedule",
		middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), middleware.RoleSelf),
		r.Reports.TeacherSchedule)
	api.GET("/cancel-reasons", r.Reports.ListCancelReasons)

	if r.Metrics != nil {
		api.GET("/system/metrics", admins, r.Metrics.System)
	}
}
