package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/health-alarm/internal/application"
	"github.com/eugenenazirov/health-alarm/internal/config"
	"github.com/eugenenazirov/health-alarm/internal/logging"
)

const shutdownGracePeriod = 10 * time.Second

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("health-alarm", "Health alarm agent - checks downstream services and mails findings")
	configDir := kingpinApp.Flag("config-dir", "Directory holding application.yml and application-<profile>.yml").Default(".").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").Default("info").String()
	logFile := kingpinApp.Flag("log-file", "Optional rotating log file").String()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	logger, err := logging.New(logging.Options{Level: *logLevel, File: *logFile})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := loadConfig(*configDir, logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	app, err := application.New(*cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start agent", zap.Error(err))
	}

	shutdown(app.Server(), cancel, shutdownGracePeriod, logger)
}

// loadConfig runs the profile cascade and turns absence into an error.
func loadConfig(dir string, logger *zap.Logger) (*config.ApplicationConfig, error) {
	cfg, ok, err := config.NewLoader(dir, logger).Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no configuration resolved from %s", dir)
	}
	return cfg, nil
}

func shutdown(server *http.Server, stopCollector context.CancelFunc, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down agent")
	stopCollector()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
