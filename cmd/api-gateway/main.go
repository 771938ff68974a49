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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/target-setting-api/api/swagger"
	"github.com/noah-isme/target-setting-api/internal/handler"
	internalmiddleware "github.com/noah-isme/target-setting-api/internal/middleware"
	"github.com/noah-isme/target-setting-api/internal/repository"
	"github.com/noah-isme/target-setting-api/internal/service"
	"github.com/noah-isme/target-setting-api/pkg/cache"
	"github.com/noah-isme/target-setting-api/pkg/config"
	"github.com/noah-isme/target-setting-api/pkg/database"
	"github.com/noah-isme/target-setting-api/pkg/jobs"
	"github.com/noah-isme/target-setting-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/target-setting-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/target-setting-api/pkg/middleware/requestid"
)

// @title Target Setting API
// @version 1.0.0
// @description Monthly sales commitments, multi-tier review and yearly target allocation
// @BasePath /api/v1
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	employeeRepo := repository.NewEmployeeRepository(db)
	commitmentRepo := repository.NewCommitmentRepository(db)
	productRepo := repository.NewProductRepository(db)
	yearlyRepo := repository.NewYearlyTargetRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	fiscalRepo := repository.NewFiscalYearRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "target-setting")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	fiscalSvc := service.NewFiscalYearService(fiscalRepo, cfg.FiscalYear.ActiveCode, logr)
	hierarchySvc := service.NewHierarchyService(employeeRepo, commitmentRepo, fiscalSvc, metricsSvc, logr)

	auditSvc := service.NewAuditService(auditRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	}, logr)
	auditCtx, stopAudit := context.WithCancel(context.Background())
	auditSvc.Start(auditCtx)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Commitments: commitmentRepo,
		Hierarchy:   hierarchySvc,
		Products:    productRepo,
		Fiscal:      fiscalSvc,
		Cache:       cacheSvc,
		Logger:      logr,
		Config:      service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	commitmentSvc := service.NewCommitmentService(commitmentRepo, productRepo, hierarchySvc, fiscalSvc, validate, logr,
		service.WithCommitmentAudit(auditSvc),
		service.WithCommitmentInvalidator(dashboardSvc),
		service.WithCommitmentMetrics(metricsSvc),
	)
	approvalSvc := service.NewApprovalService(service.ApprovalServiceParams{
		Store:       commitmentRepo,
		Employees:   hierarchySvc,
		Products:    productRepo,
		Fiscal:      fiscalSvc,
		Tiers:       service.DefaultReviewTiers(hierarchySvc),
		Validator:   validate,
		Audit:       auditSvc,
		Invalidator: dashboardSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
	})
	yearlySvc := service.NewYearlyTargetService(yearlyRepo, hierarchySvc, fiscalSvc, auditSvc, validate, logr,
		service.YearlyTargetConfig{EnforceScope: cfg.YearlyTargets.EnforceScope})
	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, logr)

	readiness := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	commitmentHandler := handler.NewCommitmentHandler(commitmentSvc)
	reviewHandler := handler.NewReviewHandler(approvalSvc)
	yearlyHandler := handler.NewYearlyTargetHandler(yearlySvc)
	teamHandler := handler.NewTeamHandler(hierarchySvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerAPIRoutes(r, cfg.APIPrefix, authSvc, apiHandlers{
		commitments: commitmentHandler,
		reviews:     reviewHandler,
		yearly:      yearlyHandler,
		team:        teamHandler,
		dashboard:   dashboardHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	auditSvc.Stop()
	stopAudit()
}
