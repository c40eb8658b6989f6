package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/kickabout-app/kickabout/common/cache"
	"github.com/kickabout-app/kickabout/common/config"
	"github.com/kickabout-app/kickabout/common/database"
	commonevents "github.com/kickabout-app/kickabout/common/events"
	"github.com/kickabout-app/kickabout/common/logger"
	"github.com/kickabout-app/kickabout/common/natsjetstream"
	"github.com/kickabout-app/kickabout/internal/events"
	"github.com/kickabout-app/kickabout/internal/events/publisher"
	"github.com/kickabout-app/kickabout/internal/handler"
	"github.com/kickabout-app/kickabout/internal/repository"
	"github.com/kickabout-app/kickabout/internal/scheduler"
	"github.com/kickabout-app/kickabout/internal/service"
)

// App owns every long-lived component and tears them down in reverse order
// of construction.
type App struct {
	cfg    *config.Config
	logger *logger.Logger

	db          *database.DynamoDBClient
	natsClient  *natsjetstream.Client
	redisClient *cache.RedisClient

	httpServer *http.Server
	scheduler  *scheduler.Scheduler

	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	if err := a.initLogger(); err != nil {
		return nil, err
	}
	if err := a.initDatabase(); err != nil {
		return nil, err
	}
	if err := a.initNATS(); err != nil {
		return nil, err
	}
	if err := a.initRedis(); err != nil {
		return nil, err
	}
	a.initServices()

	return a, nil
}

func (a *App) Start() error {
	a.scheduler.Start(context.Background())

	a.logger.Info("Starting HTTP server", "addr", a.httpServer.Addr)
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

func (a *App) Stop(ctx context.Context) {
	a.logger.Info("Shutting down")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown error", "error", err)
	}

	a.scheduler.Stop()

	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}

	a.logger.Info("Shutdown complete")
}

// Private methods

func (a *App) initLogger() error {
	a.logger = logger.New(logger.Config{
		Level:       a.cfg.Server.LogLevel,
		Format:      logFormatFor(a.cfg.Server.Environment),
		ServiceName: "kickabout",
	})
	return nil
}

func (a *App) initDatabase() error {
	db, err := database.NewDynamoDBClient(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize DynamoDB client: %w", err)
	}

	a.db = db
	a.logger.Info("Connected to DynamoDB", "table", a.cfg.DynamoDB.TableName)
	return nil
}

func (a *App) initNATS() error {
	client, appErr := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           a.cfg.NATS.URL,
		MaxReconnect:  a.cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
	})
	if appErr != nil {
		return fmt.Errorf("failed to connect to NATS: %w", appErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if appErr := client.EnsureStream(ctx, commonevents.GameEventsStream,
		[]string{commonevents.GameEventsWildcard}); appErr != nil {
		client.Close()
		return fmt.Errorf("failed to ensure game events stream: %w", appErr)
	}

	a.natsClient = client
	a.cleanupFuncs = append(a.cleanupFuncs, func() { a.natsClient.Close() })
	a.logger.Info("Connected to NATS", "url", a.cfg.NATS.URL)
	return nil
}

func (a *App) initRedis() error {
	client, err := cache.NewRedisClient(a.cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	a.redisClient = client
	a.cleanupFuncs = append(a.cleanupFuncs, func() { a.redisClient.Close() })
	a.logger.Info("Connected to Redis", "addr", a.cfg.Redis.Address)
	return nil
}

func (a *App) initServices() {
	gameRepo := repository.NewGameRepository(a.db)
	userRepo := repository.NewUserRepository(a.db)
	participantRepo := repository.NewParticipantRepository(a.db)
	ledgerRepo := repository.NewLedgerRepository(a.db, database.NewTransactionRepository(a.db))
	attendanceRepo := repository.NewAttendanceRepository(a.redisClient, a.logger)

	eventPublisher := publisher.NewEventPublisher(a.natsClient, a.logger)

	admissionService := service.NewAdmissionService(
		gameRepo, participantRepo, userRepo, ledgerRepo, eventPublisher, a.logger)
	gameService := service.NewGameService(
		gameRepo, participantRepo, userRepo, eventPublisher, a.logger)

	subscriber := events.NewEventSubscriber(a.natsClient, attendanceRepo, a.logger)
	if err := subscriber.Start(context.Background()); err != nil {
		a.logger.Error("Failed to start event subscriber", "error", err)
	}

	gameScheduler := scheduler.NewGameScheduler(gameService, a.logger)
	a.scheduler = scheduler.NewScheduler(a.logger)
	a.scheduler.Register(gameScheduler.CompletionTask(
		time.Duration(a.cfg.Scheduler.CompletionIntervalSeconds) * time.Second))

	gameHandler := handler.NewGameHandler(gameService, admissionService, attendanceRepo, a.logger)

	router := mux.NewRouter()
	gameHandler.RegisterRoutes(router)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.HTTPPort),
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func logFormatFor(environment string) string {
	if environment == "development" {
		return "console"
	}
	return "json"
}
