// Command reconcile-invoices runs one invoice reconciliation pass against the
// configured database and exits. Use it after an outage instead of waiting
// for the server's background reconciler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/pharmaplaza/server/internal/config"
	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("PHARMA_CONFIG"), "path to YAML config file")
	grace := flag.Duration("grace", 0, "only complete purges pending for at least this long (default: storage.reconcile_grace)")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("reconcile.env_file_unreadable")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("reconcile.config_invalid")
	}
	if cfg.Storage.Backend != "mongodb" {
		log.Fatal().Str("backend", cfg.Storage.Backend).Msg("reconcile.requires_mongodb")
	}

	l := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "pharmaplaza-reconcile",
		Environment: cfg.Logging.Environment,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := storage.NewMongoDBStore(ctx, storage.StoreConfig{
		Backend:         cfg.Storage.Backend,
		MongoDBURL:      cfg.Storage.MongoDBURL,
		MongoDBDatabase: cfg.Storage.MongoDBDatabase,
		ConnectTimeout:  cfg.Storage.ConnectTimeout.Duration,
		UseTransactions: cfg.Storage.UseTransactions,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("reconcile.connect_failed")
	}
	defer store.Close()

	rc := storage.ReconcilerConfig{Grace: cfg.Storage.ReconcileGrace.Duration}
	if *grace > 0 {
		rc.Grace = *grace
	}
	reconciler := storage.NewInvoiceReconciler(store, rc, nil, l)

	n, err := reconciler.RunOnce(ctx)
	if err != nil {
		_ = store.Close()
		l.Fatal().Err(err).Msg("reconcile.failed")
	}
	fmt.Printf("completed cart purge for %d invoice(s)\n", n)
}
