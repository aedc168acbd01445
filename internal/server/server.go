package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/confly-app/apiserver/config"
	"github.com/confly-app/apiserver/internal/db"
	"github.com/confly-app/apiserver/internal/handlers"
	"github.com/confly-app/apiserver/internal/mailer"
	"github.com/confly-app/apiserver/internal/mq"
	"github.com/confly-app/apiserver/internal/realtime"
	"github.com/confly-app/apiserver/internal/schedule"
	"github.com/confly-app/apiserver/internal/services"
	"github.com/confly-app/apiserver/internal/storage"
	"github.com/confly-app/apiserver/internal/store"
)

// Server wraps the HTTP server, router, and the long-lived backends behind
// the Q&A API.
type Server struct {
	httpServer  *http.Server
	router      *chi.Mux
	db          *sql.DB
	broker      mq.Backend
	broadcaster *realtime.Broadcaster
	logger      *slog.Logger
}

// New constructs a fully wired Server from config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	userRepo := store.NewUserRepository(dbConn)
	questionRepo := store.NewQuestionRepository(dbConn)
	verificationRepo := store.NewVerificationRepository(dbConn)

	broker, err := newBroker(ctx, cfg.Broker)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("connecting broker: %w", err)
	}

	hub := realtime.NewHub(logger)
	broadcaster := realtime.NewBroadcaster(hub, broker, cfg.Broker.Channel, logger)

	sender, err := newSender(cfg.SMTP, logger)
	if err != nil {
		_ = dbConn.Close()
		closeBroker(broker, logger)
		return nil, fmt.Errorf("configuring mailer: %w", err)
	}

	identityService := services.NewIdentityService(userRepo, broadcaster, logger)
	questionService := services.NewQuestionService(questionRepo, broadcaster, logger)
	leaderboardService := services.NewLeaderboardService(questionRepo, cfg.Leaderboard.CacheTTL, logger)
	verificationService, err := services.NewVerificationService(
		verificationRepo, sender, cfg.Verification.MaxAttempts, cfg.Verification.CodeTTL, logger)
	if err != nil {
		_ = dbConn.Close()
		closeBroker(broker, logger)
		return nil, err
	}

	scheduleService, err := newScheduleService(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		closeBroker(broker, logger)
		return nil, fmt.Errorf("configuring schedule: %w", err)
	}

	authHandler := handlers.NewAuthHandler(identityService, verificationService, logger)
	questionHandler := handlers.NewQuestionHandler(questionService, logger)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService, logger)
	userHandler := handlers.NewUserHandler(identityService, logger)
	sseHandler := handlers.NewSSEHandler(hub, logger)

	identify := handlers.Identify(identityService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(identify)

		r.Get("/healthz", handlers.Healthz)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-code", authHandler.SendCode)
			r.Post("/verify", authHandler.Verify)
			r.Post("/", authHandler.Resolve)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/{sessionID}", questionHandler.ListBySession)
			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireUser)
				r.Post("/", questionHandler.Create)
				r.Delete("/{id}", questionHandler.Delete)
				r.Post("/{id}/vote", questionHandler.ToggleVote)
			})
		})

		r.Get("/leaderboard", leaderboardHandler.Get)

		r.Route("/users", func(r chi.Router) {
			r.Use(handlers.RequireUser)
			r.Get("/me", userHandler.Me)
			r.Put("/display-name", userHandler.UpdateDisplayName)
		})

		if scheduleService != nil {
			scheduleHandler := handlers.NewScheduleHandler(scheduleService, logger)
			r.Get("/schedule", scheduleHandler.List)
			r.Get("/schedule/{sessionID}", scheduleHandler.Get)
		}
	})

	// SSE streams stay open indefinitely; no timeout middleware here.
	router.Get("/sse/events/{sessionID}", sseHandler.Events)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays zero: it would sever long-lived SSE streams.
		IdleTimeout: 60 * time.Second,
	}

	return &Server{
		httpServer:  httpServer,
		router:      router,
		db:          dbConn,
		broker:      broker,
		broadcaster: broadcaster,
		logger:      logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the broker consumer and the HTTP server. It returns when the
// HTTP server stops.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.broadcaster.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("broker consumer stopped", "error", err)
		}
	}()
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	closeBroker(s.broker, s.logger)
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

func newBroker(ctx context.Context, cfg config.BrokerConfig) (mq.Backend, error) {
	switch cfg.Kind {
	case "", "none":
		return nil, nil
	case "pubsub":
		return mq.NewPubSubClient(ctx, cfg.PubSub)
	case "rabbitmq":
		return mq.NewRabbitMQClient(cfg.RabbitMQ)
	default:
		return nil, fmt.Errorf("unknown broker kind %q", cfg.Kind)
	}
}

func closeBroker(broker mq.Backend, logger *slog.Logger) {
	if broker == nil {
		return
	}
	if err := broker.Close(); err != nil {
		logger.Warn("broker close failed", "error", err)
	}
}

func newSender(cfg config.SMTPConfig, logger *slog.Logger) (mailer.Sender, error) {
	if cfg.Host == "" {
		return mailer.NewLogSender(logger), nil
	}
	return mailer.NewSMTPSender(cfg)
}

func newSnapshots(ctx context.Context, cfg config.SnapshotsConfig) (*storage.Snapshots, error) {
	var backend storage.ObjectStore
	var err error
	switch cfg.Kind {
	case "", "none":
		return nil, nil
	case "minio":
		backend, err = storage.NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = storage.NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown snapshots kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	snapshots := storage.NewSnapshots(backend)
	if err := snapshots.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// newScheduleService returns nil when no spreadsheet is configured; the
// schedule routes are then simply not mounted.
func newScheduleService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*schedule.Service, error) {
	if cfg.Schedule.SpreadsheetID == "" {
		return nil, nil
	}

	source, err := schedule.NewSheetsSource(ctx, cfg.Schedule)
	if err != nil {
		return nil, err
	}

	snapshots, err := newSnapshots(ctx, cfg.Snapshots)
	if err != nil {
		return nil, err
	}

	return schedule.NewService(source, snapshots, cfg.Schedule.CacheTTL, logger), nil
}
