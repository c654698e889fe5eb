package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/ragavi-632007/exam-timetable/api/swagger"
	"github.com/ragavi-632007/exam-timetable/internal/handler"
	"github.com/ragavi-632007/exam-timetable/internal/repository"
	"github.com/ragavi-632007/exam-timetable/internal/service"
	"github.com/ragavi-632007/exam-timetable/pkg/cache"
	"github.com/ragavi-632007/exam-timetable/pkg/config"
	"github.com/ragavi-632007/exam-timetable/pkg/database"
	"github.com/ragavi-632007/exam-timetable/pkg/export"
	"github.com/ragavi-632007/exam-timetable/pkg/logger"
	corsmiddleware "github.com/ragavi-632007/exam-timetable/pkg/middleware/cors"
	reqidmiddleware "github.com/ragavi-632007/exam-timetable/pkg/middleware/requestid"
)

// @title Exam Timetable API
// @version 1.0.0
// @description Schedules internal assessment and model exams across departments, keeping shared subjects on one date.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	subjectRepo := repository.NewSubjectRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	scheduleRepo := repository.NewExamScheduleRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "exam-timetable", logr)
	publisher := repository.NewNotificationPublisher(redisClient, cfg.Notifier.Channel)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	notifier := service.NewNotificationService(publisher, metrics, logr, service.NotificationConfig{
		Workers:    cfg.Notifier.Workers,
		BufferSize: cfg.Notifier.BufferSize,
	})
	notifier.Start(ctx)
	defer notifier.Stop()

	schedulingSvc := service.NewSchedulingService(
		subjectRepo, departmentRepo, staffRepo, scheduleRepo, db,
		notifier, cacheSvc, metrics, validate, logr,
		service.SchedulingConfig{Serializable: cfg.Scheduler.Serializable, TxRetries: cfg.Scheduler.TxRetries},
	)
	timetableSvc := service.NewExamScheduleService(scheduleRepo, cacheSvc, metrics, logr,
		export.NewCSVExporter(), export.NewPDFExporter(cfg.Export.Institution))
	alertSvc := service.NewAlertService(alertRepo, validate, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{Secret: cfg.Auth.Secret, Issuer: cfg.Auth.Issuer})

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	registerRoutes(r, cfg, routeDeps{
		auth:      authSvc,
		metrics:   metrics,
		schedules: handler.NewExamScheduleHandler(schedulingSvc, timetableSvc),
		alerts:    handler.NewAlertHandler(alertSvc),
		ops:       handler.NewMetricsHandler(metrics, checks),
	}, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
