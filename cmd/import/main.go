// Command import loads fixtures into the configured record store: the
// built-in seed data and/or the college football games feed.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	app "github.com/CurryTPH/all-sports-api/internal/app"
	"github.com/CurryTPH/all-sports-api/internal/config"
	"github.com/CurryTPH/all-sports-api/internal/importer"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		source  = flag.String("source", "", "Games feed URL or JSON file (e.g. "+importer.DefaultFeedURL+")")
		apiKey  = flag.String("api-key", os.Getenv("CFBD_API_KEY"), "Bearer token for URL sources (default $CFBD_API_KEY)")
		seed    = flag.Bool("seed", false, "Insert the built-in sports, leagues and seed fixtures")
		workers = flag.Int("workers", runtime.NumCPU(), "Number of import workers")
		timeout = flag.Duration("timeout", defaultTimeout, "Feed request timeout")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(logger.FormatConsole)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Get().Named("import")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	// Store selection follows the server's configuration.
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}
	store, err := app.OpenStore(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.Error(err))
		os.Exit(1)
	}

	_, err = importer.Run(ctx, importer.Config{
		Source:  *source,
		APIKey:  *apiKey,
		Seed:    *seed,
		Workers: *workers,
		Timeout: *timeout,
	}, store, log)
	if cerr := store.Close(); cerr != nil {
		log.Warn(ctx, "failed to close store", logger.Error(cerr))
	}
	if err != nil {
		log.Error(ctx, "import failed", logger.Error(err))
		os.Exit(1)
	}
}

func showHelp() {
	os.Stdout.WriteString(`All Sports API importer
=======================

Loads fixtures into the store selected by ALLSPORTS_STORE_DRIVER and
ALLSPORTS_STORE_PATH (or the file at ALLSPORTS_CONFIG).

Usage:
  go run ./cmd/import [options]

Options:
  -source string    Games feed URL or JSON file
  -api-key string   Bearer token for URL sources (default $CFBD_API_KEY)
  -seed             Insert the built-in sports, leagues and seed fixtures
  -workers int      Number of import workers (default CPU cores)
  -timeout duration Feed request timeout (default 30s)
  -verbose          Enable debug logging
  -help             Show this help message

Examples:
  # Seed a badger store
  ALLSPORTS_STORE_DRIVER=badger go run ./cmd/import -seed

  # Import the 2023 regular season
  go run ./cmd/import -source "` + importer.DefaultFeedURL + `" -api-key "$CFBD_API_KEY"
`)
}
