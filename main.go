package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transfera/config"
	"transfera/cron"
	"transfera/handlers"
	"transfera/middleware"
	"transfera/models"
	"transfera/routes"
	"transfera/services/booking"
	"transfera/services/geocode"
	"transfera/services/notification"
	"transfera/services/pricing"
	"transfera/services/request"
	"transfera/services/tasks"
	"transfera/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiterStore(config.AppConfig.MaxRequestsPerMin)))
	stripe.Key = config.AppConfig.StripeKey

	// Stores and external clients.
	sessionCache := utils.NewSessionCacheClient(
		config.AppConfig.RedisAddr,
		config.AppConfig.RedisPassword,
		config.AppConfig.RedisSessionDB,
	)
	sessionTTL := time.Duration(config.AppConfig.SessionTTLMinutes) * time.Minute
	sessionStore := booking.NewRedisSessionStore(sessionCache, sessionTTL)

	mapsClient, err := geocode.NewMapsClient(config.AppConfig.GoogleAPIKey)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize maps client: %v", err)
	}
	resolver := geocode.NewResolver(mapsClient, logger)

	tracker := request.NewTracker(logger)
	pricingClient := pricing.NewClient(config.AppConfig.PricingAPIURL, tracker, logger)

	// Background email queue.
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer queueClient.Close()
	enqueueEmail := func(payload models.EmailPayload) error {
		task, opts, err := tasks.NewBookingEmailTask(payload)
		if err != nil {
			return err
		}
		_, err = queueClient.Enqueue(task, opts...)
		return err
	}

	notificationService := notification.NewWebhookNotificationService(
		config.AppConfig.EmailWebhookURL,
		config.AppConfig.EmailWebhookSecret,
		logger,
	)
	cron.InitEmailWorker(notificationService)

	// Services.
	submitter := booking.NewSubmitter(
		config.AppConfig.BookingAPIURL,
		config.AppConfig.CheckoutSuccessURL,
		config.AppConfig.CheckoutCancelURL,
		enqueueEmail,
		logger,
	)
	bookingService := booking.NewBookingFlowService(sessionStore, pricingClient, resolver, submitter, logger)

	// Handlers and routes.
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	geocodeHandler := handlers.NewGeocodeHandler(resolver, logger)
	routes.RegisterRoutes(router, bookingHandler, geocodeHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
