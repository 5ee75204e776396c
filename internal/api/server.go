package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fleetgo/dispatch-api/internal/auth"
	"github.com/fleetgo/dispatch-api/internal/config"
	"github.com/fleetgo/dispatch-api/internal/database"
	"github.com/fleetgo/dispatch-api/internal/handlers"
	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/internal/outbox"
	"github.com/fleetgo/dispatch-api/internal/qr"
	"github.com/fleetgo/dispatch-api/internal/repository"
	"github.com/fleetgo/dispatch-api/internal/service"
	"github.com/fleetgo/dispatch-api/internal/ws"
	"github.com/fleetgo/dispatch-api/pkg/circuitbreaker"
	"github.com/fleetgo/dispatch-api/pkg/kafka"
	"github.com/fleetgo/dispatch-api/pkg/logger"
	"github.com/fleetgo/dispatch-api/pkg/middleware"
	"github.com/fleetgo/dispatch-api/pkg/retry"
)

// Server wires the dispatch API together: HTTP surface, services, outbox
// processors, Kafka producer/consumer and the realtime hub.
type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *mux.Router
	httpServer *http.Server
	db         *database.Database

	tokens      *auth.TokenManager
	sessionRepo sessionStore
	dlqRepo     *repository.DeadLetterRepository

	availabilityService *service.AvailabilityService
	dispatchService     *service.DispatchService
	tripService         *service.TripService
	confirmationService *service.ConfirmationService

	hub                 *ws.Hub
	hubCancel           context.CancelFunc
	outboxProcessor     *outbox.Processor
	deadLetterProcessor *outbox.DeadLetterProcessor
	kafkaProducer       *kafka.Producer
	kafkaConsumer       *kafka.Consumer
	kafkaBreaker        *circuitbreaker.CircuitBreaker

	rateLimiter         *middleware.RateLimiterMiddleware
	endpointRateLimiter *middleware.EndpointRateLimiterMiddleware
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, logger logger.Logger) (*Server, error) {
	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if cfg.OwnerEmail != "" {
		if err := db.SeedOwner(context.Background(), cfg.OwnerEmail); err != nil {
			return nil, fmt.Errorf("failed to seed owner account: %w", err)
		}
	}

	// Repositories
	txManager := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db, logger)
	sessionRepo := repository.NewSessionRepository(db, logger)
	vehicleRepo := repository.NewVehicleRepository(db, logger)
	orderRepo := repository.NewOrderRepository(db, logger)
	tripRepo := repository.NewTripRepository(db, logger)
	paymentRepo := repository.NewPaymentRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	dlqRepo := repository.NewDeadLetterRepository(db, logger)

	// Realtime hub
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	hub := ws.NewHub(tokens, logger)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	// Services
	signer := qr.NewSigner(cfg.QRSecret)
	availabilityService := service.NewAvailabilityService(userRepo, logger)
	dispatchService := service.NewDispatchService(
		txManager, userRepo, vehicleRepo, orderRepo, tripRepo, outboxRepo, hub, logger)
	tripService := service.NewTripService(
		txManager, userRepo, orderRepo, tripRepo, outboxRepo, hub, logger)
	confirmationService := service.NewConfirmationService(
		txManager, userRepo, orderRepo, tripRepo, paymentRepo, outboxRepo, signer, hub, logger)

	// Kafka producer, guarded by a circuit breaker
	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		hubCancel()
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	kafkaBreaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 2,
	})

	kafkaHandler := outbox.NewKafkaHandler(kafkaProducer, kafkaBreaker, cfg.Kafka.DispatchTopic, logger)

	// Outbox processor
	outboxProcessor := outbox.NewProcessor(outboxRepo, dlqRepo, outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, logger)

	// Dead letter processor polls less often and backs off harder
	deadLetterProcessor := outbox.NewDeadLetterProcessor(dlqRepo, logger, &outbox.DeadLetterProcessorConfig{
		PollingInterval: 30 * time.Second,
		BatchSize:       5,
		MaxRetries:      5,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 1 * time.Second,
			MaxInterval:     2 * time.Minute,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	})

	for _, eventType := range []string{
		models.EventDriverAssigned,
		models.EventTripStatusChanged,
		models.EventDeliveryConfirmed,
	} {
		outboxProcessor.RegisterHandler(eventType, kafkaHandler)
		deadLetterProcessor.RegisterHandler(eventType, kafkaHandler)
	}

	// Kafka consumer ingests the stream back for the audit handler
	kafkaConsumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.DispatchTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, logger)
	if err != nil {
		hubCancel()
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	kafkaConsumer.RegisterHandler(cfg.Kafka.DispatchTopic, handlers.NewDispatchEventsHandler(logger))

	// Rate limiting: a global adaptive limiter plus per-IP buckets, and a
	// per-endpoint limiter tightened on the scan endpoint so codes cannot
	// be brute forced.
	rateLimiter := middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
		GlobalMaxTokens:   200,
		GlobalMaxRate:     100,
		GlobalMinRate:     10,
		GlobalThreshold:   0.8,
		IPMaxTokens:       30,
		IPRefillRate:      10,
		TrustForwardedFor: cfg.Env != "production",
	}, logger)

	endpointRateLimiter := middleware.NewEndpointRateLimiterMiddleware(60, 30, logger)
	endpointRateLimiter.SetLimit("POST:/api/v1/driver/confirm-qr", 5, 1)

	r := mux.NewRouter()

	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:                  db,
		tokens:              tokens,
		sessionRepo:         sessionRepo,
		dlqRepo:             dlqRepo,
		availabilityService: availabilityService,
		dispatchService:     dispatchService,
		tripService:         tripService,
		confirmationService: confirmationService,
		hub:                 hub,
		hubCancel:           hubCancel,
		outboxProcessor:     outboxProcessor,
		deadLetterProcessor: deadLetterProcessor,
		kafkaProducer:       kafkaProducer,
		kafkaConsumer:       kafkaConsumer,
		kafkaBreaker:        kafkaBreaker,
		rateLimiter:         rateLimiter,
		endpointRateLimiter: endpointRateLimiter,
	}

	server.setupRoutes()

	outboxProcessor.Start()
	deadLetterProcessor.Start()

	if err := kafkaConsumer.Start(); err != nil {
		// Non-fatal; the outbox keeps events durable until the stream is back
		logger.Error("Failed to start Kafka consumer", "error", err)
	}

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting server", "port", s.config.Port, "env", s.config.Env)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its background workers
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()
	s.deadLetterProcessor.Stop()
	s.hubCancel()
	s.rateLimiter.Stop()

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for our API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(s.endpointRateLimiter.Middleware)

	// Realtime channel authenticates via token query parameter on upgrade
	s.router.HandleFunc("/ws", s.hub.ServeWS).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	// Dispatcher surface
	manager := api.PathPrefix("/manager").Subrouter()
	manager.Use(s.authMiddleware)
	manager.Use(s.requireRoles(models.RoleManager, models.RoleCompany))
	manager.HandleFunc("/orders/available-drivers", s.getAvailableDriversHandler).Methods(http.MethodGet)
	manager.HandleFunc("/orders/{orderId}/assign-driver", s.assignDriverHandler).Methods(http.MethodPatch)

	// Customer surface
	customer := api.PathPrefix("/customer").Subrouter()
	customer.Use(s.authMiddleware)
	customer.Use(s.requireRoles(models.RoleCustomer))
	customer.HandleFunc("/trips/{tripId}", s.getCustomerTripHandler).Methods(http.MethodGet)
	customer.HandleFunc("/trips/{tripId}/qr", s.getTripQRHandler).Methods(http.MethodGet)

	// Driver surface
	driver := api.PathPrefix("/driver").Subrouter()
	driver.Use(s.authMiddleware)
	driver.Use(s.requireRoles(models.RoleDriver))
	driver.HandleFunc("/confirm-qr", s.confirmQRHandler).Methods(http.MethodPost)
	driver.HandleFunc("/trips", s.getDriverTripsHandler).Methods(http.MethodGet)
	driver.HandleFunc("/trips/{tripId}/status", s.updateTripStatusHandler).Methods(http.MethodPatch)
	driver.HandleFunc("/trips/{tripId}/location", s.recordTripLocationHandler).Methods(http.MethodPost)

	// Operator surface
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.authMiddleware)
	admin.Use(s.requireRoles(models.RoleOwner))
	admin.HandleFunc("/dead-letters", s.getDeadLettersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/dead-letters/{id}/retry", s.retryDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/dead-letters/{id}/discard", s.discardDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/rate-limits", s.getRateLimitsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/rate-limits", s.setEndpointRateLimitHandler).Methods(http.MethodPost)
	admin.HandleFunc("/circuit-breaker", s.getCircuitBreakerStatusHandler).Methods(http.MethodGet)
	admin.HandleFunc("/circuit-breaker/reset", s.resetCircuitBreakerHandler).Methods(http.MethodPost)
}
