package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/health-alarm/internal/alarm"
	"github.com/eugenenazirov/health-alarm/internal/api"
	"github.com/eugenenazirov/health-alarm/internal/config"
	"github.com/eugenenazirov/health-alarm/internal/health"
	"github.com/eugenenazirov/health-alarm/internal/storage"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage   *storage.MemoryStorage
	notifier  *alarm.Notifier
	collector *health.Collector
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// New initializes the application from a resolved configuration. An error
// means the mail transport could not be built and startup must abort.
func New(cfg config.ApplicationConfig, logger *zap.Logger, notifierOpts ...alarm.Option) (*App, error) {
	notifier, err := alarm.New(cfg.Mail, logger.Named("alarm"), notifierOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build notifier: %w", err)
	}

	store := storage.NewMemoryStorage()
	checker := health.NewChecker(cfg.Monitor.Timeout)
	collector := health.NewCollector(cfg.Services, checker, notifier, store, cfg.Monitor.Interval, logger.Named("health"))

	handler := api.NewHandler(store, cfg.Services)
	router := api.NewRouter(handler, logger.Named("api"),
		api.WithRateLimit(cfg.Server.RateLimit),
	)

	return &App{
		storage:   store,
		notifier:  notifier,
		collector: collector,
		handler:   handler,
		router:    router,
		logger:    logger,
		server:    NewServer(cfg.Server, router),
	}, nil
}

// NewServer creates an HTTP server listening on the configured address.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	addr := cfg.Addr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// Start runs the HTTP server and the health collector in goroutines. The
// collector stops when ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	go a.collector.Run(ctx)
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Collector returns the health collector.
func (a *App) Collector() *health.Collector {
	return a.collector
}

// Router returns the status API handler.
func (a *App) Router() http.Handler {
	return a.router
}
