package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medflow/medflow-attendance/internal/attendance/consumers"
	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/internal/attendance/events"
	"github.com/medflow/medflow-attendance/internal/attendance/handler"
	"github.com/medflow/medflow-attendance/internal/attendance/repository"
	"github.com/medflow/medflow-attendance/internal/attendance/service"
	"github.com/medflow/medflow-attendance/pkg/config"
	"github.com/medflow/medflow-attendance/pkg/database"
	"github.com/medflow/medflow-attendance/pkg/httputil"
	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/medflow/medflow-attendance/pkg/messaging"
)

const serviceName = "attendance-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Msg("starting Attendance Service")

	loc, err := cfg.Attendance.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid attendance timezone")
	}

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, serviceName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeAttendanceEvents, serviceName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Open the notification outbox
	outbox, err := events.OpenOutbox(cfg.Attendance.OutboxPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Attendance.OutboxPath).Msg("failed to open notification outbox")
	}
	defer outbox.Close()

	dispatcher := events.NewNotificationDispatcher(publisher, outbox, log.WithComponent("notifications"))

	// Initialize repositories
	clockEventRepo := repository.NewClockEventRepository(db, loc)
	adjustmentRepo := repository.NewAdjustmentRepository(db, loc)
	rosterRepo := repository.NewRosterRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)

	var settingsStore service.SettingsStore
	if cfg.Attendance.SettingsSource == config.SettingsSourceDatabase {
		settingsStore = repository.NewSettingsRepository(db)
	}

	// Initialize services
	settingsService, err := service.NewSettingsService(settingsStore, defaultSettings(&cfg.Attendance), service.SystemClock, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid attendance defaults")
	}
	attendanceService := service.NewAttendanceService(settingsService, clockEventRepo, rosterRepo, leaveRepo, loc, service.SystemClock, log)
	adjustmentService := service.NewAdjustmentService(db, clockEventRepo, adjustmentRepo, dispatcher, service.SystemClock, log)

	// Initialize handlers
	handlers := &handler.Handlers{
		Attendance:    handler.NewAttendanceHandler(attendanceService, log),
		Settings:      handler.NewSettingsHandler(settingsService, log),
		Adjustments:   handler.NewAdjustmentHandler(adjustmentService, log),
		Notifications: handler.NewNotificationHandler(outbox, log),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start staff event consumer
	staffConsumer, err := consumers.NewStaffEventConsumer(rmq, clockEventRepo, rosterRepo, leaveRepo, log.WithComponent("staff-consumer"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create staff event consumer")
	}
	if err := staffConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start staff event consumer")
	}

	rmq.Watch(ctx, func() {
		if err := staffConsumer.Restart(ctx); err != nil {
			log.Error().Err(err).Msg("failed to restart staff event consumer")
		}
	})

	// Background jobs
	if cfg.Attendance.OutboxRetryInterval > 0 {
		retrier := events.NewOutboxRetrier(outbox, publisher, cfg.Attendance.OutboxRetryInterval, log.WithComponent("outbox-retrier"))
		retrier.Start(ctx)
		defer retrier.Stop()
	}

	if cfg.Attendance.AbsenceSweepInterval > 0 {
		sweeper := service.NewAbsenceSweeper(attendanceService, publisher, cfg.Attendance.AbsenceSweepInterval, log.WithComponent("absence-sweeper"))
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.Authenticate(httputil.AuthConfig{
		Secret:              cfg.JWT.Secret,
		Issuer:              cfg.JWT.Issuer,
		TrustGatewayHeaders: !config.IsProductionLike(cfg.Server.Environment),
	}, log))

	// Health check (no authentication required - handled by middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pending, err := outbox.Len()
		outboxStatus := map[string]interface{}{"status": "up", "pending": pending}
		if err != nil {
			outboxStatus = map[string]interface{}{"status": "down", "error": err.Error()}
		}

		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
			"outbox":   outboxStatus,
		})
	})

	handlers.Mount(r)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Str("timezone", loc.String()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers and background jobs
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// defaultSettings converts the configured attendance defaults. They seed the
// settings store on first use.
func defaultSettings(cfg *config.AttendanceConfig) domain.Settings {
	return domain.Settings{
		ExpectedClockInTime:    cfg.ExpectedClockInTime,
		LateThresholdMinutes:   cfg.LateThresholdMinutes,
		AbsentThresholdMinutes: cfg.AbsentThresholdMinutes,
		WorkDays:               append([]int(nil), cfg.WorkDays...),
		TrackWeekends:          cfg.TrackWeekends,
	}
}
