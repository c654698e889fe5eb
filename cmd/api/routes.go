package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/ragavi-632007/exam-timetable/internal/handler"
	internalmiddleware "github.com/ragavi-632007/exam-timetable/internal/middleware"
	"github.com/ragavi-632007/exam-timetable/internal/models"
	"github.com/ragavi-632007/exam-timetable/internal/service"
	"github.com/ragavi-632007/exam-timetable/pkg/config"
)

type routeDeps struct {
	auth      *service.AuthService
	metrics   *service.MetricsService
	schedules *handler.ExamScheduleHandler
	alerts    *handler.AlertHandler
	ops       *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, deps routeDeps, logr *zap.Logger) {
	r.Use(internalmiddleware.Metrics(deps.metrics))

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	if cfg.Auth.Enabled {
		api.Use(internalmiddleware.JWT(deps.auth))
	} else {
		logr.Warn("authentication disabled, requests run as the development admin")
		api.Use(internalmiddleware.DevIdentity(models.JWTClaims{UserID: "dev-admin", Role: models.RoleAdmin}))
	}

	schedules := api.Group("/exam-schedules")
	schedules.POST("", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator, models.RoleTeacher), deps.schedules.Schedule)
	schedules.GET("", deps.schedules.List)
	schedules.GET("/export", deps.schedules.Export)
	schedules.GET("/:id", deps.schedules.Get)
	schedules.DELETE("/:id", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator), deps.schedules.Delete)

	alerts := api.Group("/alerts")
	alerts.POST("", internalmiddleware.RequireRoles(models.RoleAdmin), deps.alerts.Create)
	alerts.GET("", deps.alerts.List)
	alerts.GET("/:id", deps.alerts.Get)
}
