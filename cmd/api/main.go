package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/shkola-api/internal/config"
	"github.com/noah-isme/shkola-api/internal/database"
	"github.com/noah-isme/shkola-api/internal/handler"
	"github.com/noah-isme/shkola-api/internal/middleware"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
	"github.com/noah-isme/shkola-api/internal/router"
	"github.com/noah-isme/shkola-api/internal/service"
	"github.com/noah-isme/shkola-api/internal/storage"
	"github.com/noah-isme/shkola-api/pkg/genai"
	"github.com/noah-isme/shkola-api/pkg/lms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.TaskFile{}, &models.StudentTask{}, &models.Attendance{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, lms report caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not set, submission events stay local")
	}

	critic, err := genai.NewClient(genai.Config{
		Token:   cfg.GenAPIToken,
		BaseURL: cfg.GenAPIBaseURL,
		Model:   cfg.GenAPIModel,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create ai client: %v", err)
	}

	lmsClient, err := lms.NewClient(lms.Config{
		BaseURL: cfg.LMSBaseURL,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create lms client: %v", err)
	}

	store := storage.NewStore(cfg.UploadDir, cfg.UploadMaxMB, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	studentTaskRepo := repository.NewStudentTaskRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	events := service.NewEventPublisher(natsConn, logger)

	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.JWTTTL, logger)
	adminService := service.NewAdminService(userRepo, validate, logger)
	taskService := service.NewTaskService(taskRepo, studentTaskRepo, userRepo, store, validate, logger)
	analysisService := service.NewAnalysisService(taskRepo, studentTaskRepo, critic, validate, logger)
	submissionService := service.NewSubmissionService(taskRepo, studentTaskRepo, store, analysisService, events, validate, logger)
	gradebookService := service.NewGradebookService(taskRepo, studentTaskRepo, userRepo, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, userRepo, validate, logger)
	lmsReportService := service.NewLMSReportService(lmsClient, redisClient, cfg, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	adminHandler := handler.NewAdminHandler(adminService, lmsReportService, logger)
	taskHandler := handler.NewTaskHandler(taskService, logger)
	studentTaskHandler := handler.NewStudentTaskHandler(submissionService, logger)
	reviewHandler := handler.NewReviewHandler(submissionService, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService, logger)
	gradebookHandler := handler.NewGradebookHandler(gradebookService, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:        authHandler,
		AdminHandler:       adminHandler,
		TaskHandler:        taskHandler,
		StudentTaskHandler: studentTaskHandler,
		ReviewHandler:      reviewHandler,
		AnalysisHandler:    analysisHandler,
		GradebookHandler:   gradebookHandler,
		AttendanceHandler:  attendanceHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
