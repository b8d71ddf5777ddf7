package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"inboxcrm/internal/config"
	"inboxcrm/internal/handlers"
	"inboxcrm/internal/middleware"
	"inboxcrm/internal/models"
	"inboxcrm/internal/observability"
	"inboxcrm/internal/services"
	"inboxcrm/pkg/engine"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

func main() {
	// Read config.yml from the working directory, env vars override.
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()
	if err := config.InitLogger(cfg); err != nil {
		logrus.Warnf("init logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	shutdownOTel, err := observability.SetupTracing(context.Background(), cfg)
	if err != nil {
		appLogger.Warnf("init tracing: %v", err)
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password,
		cfg.Database.Name, cfg.Database.Port, cfg.Database.SSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}

	if err := db.AutoMigrate(
		&models.EmailTemplate{},
		&models.EmailSequence{}, &models.SequenceStep{}, &models.SequenceEnrollment{},
		&models.EmailTrigger{},
		&models.EntityAutomationRule{}, &models.RuleAction{},
		&models.AutomationSendLog{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// Business services.
	sendLogService := services.NewSendLogService(db)
	ruleService := services.NewEntityRuleService(db, appLogger)
	sequenceService := services.NewSequenceService(db, appLogger)
	enrollmentService := services.NewEnrollmentService(db, appLogger, sendLogService)
	triggerService := services.NewTriggerService(db, appLogger)
	templateService := services.NewTemplateService(db)

	// Live activity feed.
	activityHub := services.NewActivityHub()
	go activityHub.Run()
	enrollmentService.SetActivityHub(activityHub)

	// Seed one rule row per known entity table.
	if cfg.Automation.SeedEntityRules {
		if err := ruleService.EnsureEntityRules(context.Background()); err != nil {
			appLogger.Fatalf("Failed to seed entity rules: %v", err)
		}
	}

	// Remote automation engine client.
	var engineClient engine.EngineInterface
	if cfg.Engine.Enabled {
		engineClient = engine.NewClient(&engine.Config{
			BaseURL:    cfg.Engine.BaseURL,
			APIKey:     cfg.Engine.APIKey,
			Timeout:    cfg.Engine.Timeout,
			MaxRetries: cfg.Engine.MaxRetries,
			RetryDelay: cfg.Engine.RetryDelay,
		}, appLogger)
	}

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddlewareWithConfig(cfg))
	r.Use(middleware.RateLimitMiddleware(cfg))
	if cfg.Monitoring.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}

	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	if cfg.Monitoring.Enabled {
		r.GET(cfg.Monitoring.MetricsPath, handlers.NewMetricsHandler().Snapshot)
	}

	// Management API, authenticated, RBAC per resource.
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))

	rulesAPI := api.Group("/")
	rulesAPI.Use(middleware.RequireResourcePermission("rules"))
	handlers.RegisterRuleRoutes(rulesAPI, handlers.NewRuleHandler(ruleService))

	sequencesAPI := api.Group("/")
	sequencesAPI.Use(middleware.RequireResourcePermission("sequences"))
	handlers.RegisterSequenceRoutes(sequencesAPI, handlers.NewSequenceHandler(sequenceService))
	handlers.RegisterEnrollmentRoutes(sequencesAPI, handlers.NewEnrollmentHandler(enrollmentService))

	triggersAPI := api.Group("/")
	triggersAPI.Use(middleware.RequireResourcePermission("triggers"))
	handlers.RegisterTriggerRoutes(triggersAPI, handlers.NewTriggerHandler(triggerService))

	templatesAPI := api.Group("/")
	templatesAPI.Use(middleware.RequireResourcePermission("templates"))
	handlers.RegisterTemplateRoutes(templatesAPI, handlers.NewTemplateHandler(templateService))

	sendLogAPI := api.Group("/")
	sendLogAPI.Use(middleware.RequireResourcePermission("sendlog"))
	handlers.RegisterSendLogRoutes(sendLogAPI, handlers.NewSendLogHandler(sendLogService))

	registryAPI := api.Group("/")
	registryAPI.Use(middleware.RequireResourcePermission("registry"))
	handlers.RegisterRegistryRoutes(registryAPI, handlers.NewRegistryHandler())

	if engineClient != nil {
		engineAPI := api.Group("/")
		engineAPI.Use(middleware.RequireResourcePermission("rules"))
		handlers.RegisterEngineRoutes(engineAPI, handlers.NewEngineHandler(engineClient))
	}

	// Realtime feed.
	v1 := r.Group("/api/v1")
	{
		activityHandler := handlers.NewActivityHandler(activityHub)
		v1.GET("/ws", activityHandler.HandleWebSocket)
		v1.GET("/ws/stats", activityHandler.GetStats)
	}

	listenAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: listenAddr, Handler: r}
	go func() {
		appLogger.Infof("Starting server on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}
}

func corsMiddlewareWithConfig(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := "*"
	allowedMethods := "GET, POST, PUT, DELETE, OPTIONS"
	allowedHeaders := "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization"
	if cfg != nil && cfg.Security.CORS.Enabled {
		if len(cfg.Security.CORS.AllowedOrigins) > 0 {
			allowedOrigins = strings.Join(cfg.Security.CORS.AllowedOrigins, ", ")
		}
		if len(cfg.Security.CORS.AllowedMethods) > 0 {
			allowedMethods = strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
		}
		if len(cfg.Security.CORS.AllowedHeaders) > 0 {
			allowedHeaders = strings.Join(cfg.Security.CORS.AllowedHeaders, ", ")
		}
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigins)
		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
