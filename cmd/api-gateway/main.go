package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-facility-api/api/swagger"
	"github.com/noah-isme/sma-facility-api/internal/handler"
	"github.com/noah-isme/sma-facility-api/internal/middleware"
	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/internal/repository"
	"github.com/noah-isme/sma-facility-api/internal/service"
	"github.com/noah-isme/sma-facility-api/pkg/cache"
	"github.com/noah-isme/sma-facility-api/pkg/config"
	"github.com/noah-isme/sma-facility-api/pkg/database"
	"github.com/noah-isme/sma-facility-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-facility-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-facility-api/pkg/middleware/requestid"
)

// @title SMA Facility Booking API
// @version 1.0.0
// @description Facility booking and schedule review for school activities
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, calendar cache and live feed disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	bookingRepo := repository.NewBookingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	feed := repository.NewBookingFeed(redisClient, cfg.Calendar.FeedChannel, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-facility-api",
	})
	notificationSvc := service.NewNotificationService(notificationRepo, cfg.Notifications, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	bookingSvc := service.NewBookingService(bookingRepo, notificationSvc, feed, userRepo, validate, logr, cfg.Booking)
	calendarSvc := service.NewCalendarService(bookingRepo, cacheRepo, feed, logr, cfg.Calendar, cfg.Booking)
	go calendarSvc.WatchFeed(ctx)

	exportSvc := service.NewExportService(bookingRepo, service.ExportConfig{
		Enabled: cfg.Exports.Enabled,
		MaxRows: cfg.Exports.MaxRows,
	}, logr, nil, nil)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc, metricsSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	bookings := api.Group("/bookings", middleware.JWT(authSvc))
	{
		bookings.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), bookingHandler.Submit)
		bookings.GET("", bookingHandler.List)
		bookings.GET("/availability", bookingHandler.Availability)
		bookings.GET("/export",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, "SCHEDULE_EXPORT", "bookings"),
			exportHandler.Download)
		bookings.GET("/:id", bookingHandler.Get)
		bookings.DELETE("/:id", bookingHandler.Withdraw)
		bookings.POST("/:id/decision", middleware.RequireRoles(models.RoleAdmin), bookingHandler.Decide)
		bookings.POST("/:id/force-decision", middleware.RequireRoles(models.RoleAdmin), bookingHandler.ForceDecide)
	}

	api.GET("/calendar/:year/:month", middleware.JWT(authSvc), calendarHandler.MonthGrid)

	notifications := api.Group("/notifications", middleware.JWT(authSvc))
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}

	api.GET("/admin/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
