package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edupanel/campus-api/api/swagger"
	"github.com/edupanel/campus-api/internal/handler"
	"github.com/edupanel/campus-api/internal/middleware"
	"github.com/edupanel/campus-api/internal/repository"
	"github.com/edupanel/campus-api/internal/service"
	"github.com/edupanel/campus-api/pkg/cache"
	"github.com/edupanel/campus-api/pkg/config"
	"github.com/edupanel/campus-api/pkg/database"
	"github.com/edupanel/campus-api/pkg/export"
	"github.com/edupanel/campus-api/pkg/logger"
	corsmiddleware "github.com/edupanel/campus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupanel/campus-api/pkg/middleware/requestid"
)

// @title Campus API
// @version 1.0.0
// @description School management API: admissions, classes, attendance, exams, fees
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	examRepo := repository.NewExamRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// A nil redis client makes the cache a no-op; every read is a miss.
	if !cfg.Dashboard.CacheEnabled {
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	verifier := service.NewGoogleVerifier(cfg.Auth.GoogleClientID, logr)
	authSvc := service.NewAuthService(userRepo, verifier, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-api",
		Audience:           []string{"campus-api"},
		DemoEnabled:        cfg.Auth.DemoEnabled,
		DemoPassword:       cfg.Auth.DemoPassword,
	})

	userSvc := service.NewUserService(userRepo, cacheRepo, nil, logr)
	classSvc := service.NewClassService(classRepo, userRepo, cacheRepo, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, nil, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, classRepo, subjectRepo, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, classRepo, export.NewCSVExporter(), cacheRepo, nil, logr)
	examSvc := service.NewExamService(examRepo, classRepo, subjectRepo, nil, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, userRepo, cfg.Settings.CacheTTL, nil, logr)
	feeSvc := service.NewFeeService(feeRepo, userRepo, settingsSvc, export.NewPDFExporter(), cacheRepo, nil, logr)
	expenseSvc := service.NewExpenseService(expenseRepo, userRepo, nil, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, nil, logr)
	admissionSvc := service.NewAdmissionService(admissionRepo, userRepo, cacheRepo, cfg.Admissions.Open, nil, logr)

	dashboardSvc := service.NewDashboardService(userRepo, classRepo, admissionRepo, feeRepo, attendanceRepo, cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr)

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		User:         handler.NewUserHandler(userSvc),
		Class:        handler.NewClassHandler(classSvc),
		Subject:      handler.NewSubjectHandler(subjectSvc),
		Schedule:     handler.NewScheduleHandler(scheduleSvc),
		Attendance:   handler.NewAttendanceHandler(attendanceSvc),
		Exam:         handler.NewExamHandler(examSvc),
		Fee:          handler.NewFeeHandler(feeSvc),
		Expense:      handler.NewExpenseHandler(expenseSvc),
		Announcement: handler.NewAnnouncementHandler(announcementSvc),
		Admission:    handler.NewAdmissionHandler(admissionSvc),
		Settings:     handler.NewSettingsHandler(settingsSvc),
		Dashboard:    handler.NewDashboardHandler(dashboardSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", handlers.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handlers)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
