package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/appointment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/class"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/clock"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/config"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/db"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/email"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/logger"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/membership"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/payment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/reminder"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/server"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/training"

	"github.com/redis/go-redis/v9"
)

// @title GymOps API
// @version 1.0
// @description Training session lifecycle, session credits and reminders for gym operations.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.LogLevel)
	logger.Info("Starting GymOps application")

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, notifications will fail until it is back", "addr", cfg.RedisAddr, "error", err)
	}
	pingCancel()

	emailService := email.New(
		rdb,
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
	)
	logger.Info("Email service initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go emailService.Start(ctx)

	clk := clock.New()

	scheduler := reminder.New(reminder.Sources{
		Sessions:     training.NewRepository(database),
		Memberships:  membership.NewRepository(database),
		Payments:     payment.NewRepository(database),
		Appointments: appointment.NewRepository(database),
		Classes:      class.NewRepository(database),
	}, emailService, rdb, clk, reminder.Options{
		DailySpec:  cfg.ReminderCron,
		HourlySpec: cfg.ReminderHourlyCron,
		LockTTL:    cfg.ReminderLockTTL,
	})
	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start reminder scheduler: %v", err)
	}

	srv := server.New(database, cfg, emailService, scheduler, clk)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	scheduler.Stop()
	cancel()

	logger.Info("Server stopped")
}
