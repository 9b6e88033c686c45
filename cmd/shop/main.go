package main

import (
	"context"
	"log"
	"time"

	router "github.com/Renal37/auto-speed-shop/internal/app"
	"github.com/Renal37/auto-speed-shop/internal/database"
	"github.com/Renal37/auto-speed-shop/internal/email"
	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/paypal"
	"github.com/Renal37/auto-speed-shop/internal/realtime"
	"github.com/Renal37/auto-speed-shop/internal/services"
	"github.com/Renal37/auto-speed-shop/internal/utils"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := NewConfig()

	if err := logger.Initialize(config.logLevel, config.env); err != nil {
		log.Fatalf("Logger wasn't initialized due to %s", err)
	}
	defer func() { _ = logger.Log.Sync() }()

	policy, err := services.ParseMismatchPolicy(config.paypalMismatchPolicy)
	if err != nil {
		log.Fatalf("Config is invalid: %s", err)
	}

	db, err := database.New(ctx, config.dsn)
	if err != nil {
		log.Fatalf("Database wasn't initialized due to %s", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Migrations weren't run due to %s", err)
	}

	jobQueueService := services.NewJobQueueService(ctx, 100, 2)

	var notificationService *services.NotificationService
	if config.emailAPIKey == "" || config.emailAPIURL == "" {
		logger.Log.Warn("EMAIL_API_KEY or EMAIL_API_URL is not set, notifications will be logged only")
		notificationService = services.NewNotificationService(db, email.LogSender{}, jobQueueService, config.notifyBatch)
	} else {
		sender := email.NewClient(email.Config{
			BaseURL: config.emailAPIURL,
			APIKey:  config.emailAPIKey,
			From:    config.emailFrom,
		})
		notificationService = services.NewNotificationService(db, sender, jobQueueService, config.notifyBatch)
	}
	notificationService.StartDispatching(ctx, config.notifyInterval)

	hub := realtime.NewHub(config.wsAllowedOrigins...)
	hubStopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubStopped)
	}()

	paypalClient := paypal.NewClient(paypal.Config{
		BaseURL:      config.paypalBaseURL,
		ClientID:     config.paypalClientID,
		ClientSecret: config.paypalClientSecret,
		Timeout:      config.paypalTimeout,
	})

	server := router.New(
		router.Config{Endpoint: config.endpoint},
		services.NewAuthService(db),
		services.NewJWTService(config.authSecretKey),
		services.NewOrderService(db, notificationService, hub),
		services.NewPaymentService(db, paypalClient, notificationService, hub, policy),
		hub,
	)

	stopped := utils.HandleTerminationProcess(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("server shutdown failed", zap.Error(err))
		}

		// Очередь дорабатывает начатые рассылки до отмены общего контекста.
		jobQueueService.Shutdown()
		cancel()
		<-hubStopped
	})

	if err := server.Run(); err != nil {
		log.Fatalf("Server stopped due to %s", err)
	}

	<-stopped
}
