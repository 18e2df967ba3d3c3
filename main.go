package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snaplink/config"
	"snaplink/cron"
	"snaplink/database"
	submissionsRepo "snaplink/database/repository/submissions"
	"snaplink/handlers"
	"snaplink/middleware"
	"snaplink/routes"
	"snaplink/services/auth"
	"snaplink/services/backend"
	"snaplink/services/booking"
	"snaplink/services/registration"
	"snaplink/services/session"
	"snaplink/services/storage"
	"snaplink/services/tasks"
	"snaplink/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const registrationTTL = time.Hour

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.AppConfig.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, using the development secret")
	}

	if err := database.InitDB(logger); err != nil {
		logger.Fatal("main: failed to connect to MongoDB", zap.Error(err))
	}
	if err := submissionsRepo.EnsureIndexes(database.Database()); err != nil {
		logger.Fatal("main: failed to create submission indexes", zap.Error(err))
	}
	utils.InitRedis()

	healthCtx, stopHealth := context.WithCancel(context.Background())
	defer stopHealth()
	utils.StartHealthMonitor(healthCtx,
		[]*redis.Client{utils.GetSessionCacheClient(), utils.GetAuthCacheClient(), utils.GetQueueCacheClient()},
		database.MongoClient, 15*time.Second)

	// Backend client; per-user clients are derived from it by the auth middleware.
	api := backend.NewClient(config.AppConfig.BackendBaseURL, config.AppConfig.BackendTimeout, logger.Named("backend"))

	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer queue.Close()

	journal := submissionsRepo.NewMongoSubmissionRepo()

	bookingService := &booking.DefaultBookingWizardService{
		Sessions:           session.NewRedisStore(utils.GetSessionCacheClient(), "bookingSession:", config.AppConfig.DraftTTL),
		Journal:            journal,
		Reminders:          tasks.NewAsynqScheduler(queue),
		Logger:             logger.Named("booking"),
		Location:           config.Location(),
		RevalidateDiscount: config.AppConfig.RevalidateDiscountOnSubmit,
		ReminderLead:       config.AppConfig.ReminderLead,
	}
	if cld, err := utils.Cloudinary(); err != nil {
		logger.Warn("main: illustration uploads disabled", zap.Error(err))
	} else {
		bookingService.Illustrations = storage.NewCloudinaryStore(cld, config.AppConfig.CloudinaryFolder, logger.Named("storage"))
	}

	registrationService := &registration.DefaultRegistrationService{
		Sessions: session.NewRedisStore(utils.GetSessionCacheClient(), "registrationSession:", registrationTTL),
		Backend:  api,
		Logger:   logger.Named("registration"),
	}

	authService := &auth.DefaultAuthService{
		Sessions: session.NewRedisStore(utils.GetAuthCacheClient(), "authSession:", config.AppConfig.SessionTokenTTL),
		Backend:  api,
		TokenTTL: config.AppConfig.SessionTokenTTL,
		Logger:   logger.Named("auth"),
	}

	worker := cron.StartReminderWorker(&cron.ReminderWorker{
		Journal:  journal,
		Bookings: api,
		Logger:   logger.Named("reminders"),
	})

	// Create the Gin router.
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	handlerBundle := handlers.NewHandlerBundle(
		middleware.JWTAuthMiddleware(authService, api),
		handlers.NewBookingHandler(bookingService),
		handlers.NewRegistrationHandler(registrationService),
		handlers.NewAuthHandler(authService),
	)
	routes.RegisterRoutes(router, handlerBundle, config.AppConfig.AllowedOrigins)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	worker.Shutdown()
	if err := database.Close(ctx); err != nil {
		logger.Error("main: failed to disconnect MongoDB", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
