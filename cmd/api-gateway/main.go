package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-timetable-api/api/swagger"
	"github.com/noah-isme/campus-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/repository"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	pkgcache "github.com/noah-isme/campus-timetable-api/pkg/cache"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	"github.com/noah-isme/campus-timetable-api/pkg/database"
	"github.com/noah-isme/campus-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-timetable-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Weekly timetable generation and substitute recommendation
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	var viewStore service.ViewStore
	if cfg.Timetable.CacheEnabled {
		redisClient, err = pkgcache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			viewStore = repository.NewRedisStore(redisClient, logr)
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	defaults := service.SchedulerDefaults(cfg.Scheduler)

	batchRepo := repository.NewBatchRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	loader := service.NewSnapshotLoader(batchRepo, repository.NewSubjectRepository(db), facultyRepo, repository.NewClassroomRepository(db), metrics)
	timetableCache := service.NewTimetableCache(viewStore, metrics, cfg.Timetable.CacheTTL, logr)
	timetableSvc := service.NewTimetableService(loader, timetableRepo, batchRepo, facultyRepo, timetableCache, metrics, validate, logr, service.TimetableServiceConfig{
		Defaults:  defaults,
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
		RunTTL:    cfg.Scheduler.RunTTL,
	})
	substituteSvc := service.NewSubstituteService(repository.NewAbsenceRepository(db), timetableRepo, loader, defaults.Constraints, metrics, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	timetableSvc.Start(ctx)
	defer timetableSvc.Stop()

	deps := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		deps["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	metricsHandler := handler.NewMetricsHandler(metrics, deps)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	absenceHandler := handler.NewAbsenceHandler(substituteSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenSvc))

	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)
	readers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleLecturer, models.RoleStudent)

	timetable := api.Group("/timetable")
	timetable.POST("/generate", adminOnly, timetableHandler.Generate)
	timetable.POST("/generate/async", adminOnly, timetableHandler.GenerateAsync)
	timetable.GET("/runs/:id", adminOnly, timetableHandler.Run)
	timetable.GET("/batch/:batch_id", readers, timetableHandler.Batch)
	timetable.GET("/batch/:batch_id/export", readers, timetableHandler.Export)
	timetable.GET("/faculty/:faculty_id", readers, timetableHandler.Faculty)

	api.POST("/absences/:id/substitute", adminOnly, absenceHandler.Substitute)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
