package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/pharmaplaza/server/internal/config"
	"github.com/pharmaplaza/server/internal/httpserver"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/pkg/pharmaplaza"
)

func main() {
	configPath := flag.String("config", os.Getenv("PHARMA_CONFIG"), "path to YAML config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before configuration")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", *envFile).Msg("server.env_file_unreadable")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("server.config_invalid")
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "pharmaplaza-api",
		Environment: cfg.Logging.Environment,
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.Storage.ConnectTimeout.Duration)
	app, err := pharmaplaza.NewApp(startCtx, cfg, pharmaplaza.WithLogger(appLogger))
	cancelStart()
	if err != nil {
		appLogger.Fatal().Err(err).Msg("server.init_failed")
	}

	srv := httpserver.New(cfg.Server, app.Handler())

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info().
			Str("address", srv.Addr()).
			Str("storage", cfg.Storage.Backend).
			Str("route_prefix", cfg.Server.RoutePrefix).
			Msg("server.listening")
		serveErr <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		appLogger.Info().Str("signal", sig.String()).Msg("server.shutting_down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error().Err(err).Msg("server.listen_failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server.shutdown_failed")
	}
	if err := app.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server.cleanup_failed")
	}
	appLogger.Info().Msg("server.stopped")
}
