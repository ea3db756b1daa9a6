package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/barcode-mcp/internal/badge"
	"github.com/ironsheep/barcode-mcp/internal/config"
	"github.com/ironsheep/barcode-mcp/internal/detection"
	"github.com/ironsheep/barcode-mcp/internal/dispatch"
	"github.com/ironsheep/barcode-mcp/internal/imaging"
	"github.com/ironsheep/barcode-mcp/internal/pipeline"
	"github.com/ironsheep/barcode-mcp/internal/region"
	"github.com/ironsheep/barcode-mcp/internal/sequencer"
	"github.com/ironsheep/barcode-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("barcode-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("barcode-mcp - MCP server for QR code click detection")
			fmt.Println()
			fmt.Println("Usage: barcode-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  BARCODE_MCP_OPTIONS=path          Options JSON file")
			fmt.Println("  BARCODE_MCP_LOG_LEVEL=debug       debug, info, warn or error")
			fmt.Println("  BARCODE_MCP_SURFACES=notify       notify (client) or local (this machine)")
			fmt.Println("  BARCODE_MCP_BADGE_CLEAR_MS=2500   Delay before a complete badge clears")
			fmt.Println("  BARCODE_MCP_QUEUE_DEPTH=64        Pending cycles before triggers block")
			fmt.Println("  BARCODE_MCP_CACHE_SIZE=32         Cached data: URL rasters")
			fmt.Println("  BARCODE_MCP_FETCH_TIMEOUT_MS=0    HTTP image fetch timeout")
			fmt.Println("  BARCODE_MCP_ALLOW_FILES=false     Read file: URLs and paths from disk")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "barcode-mcp: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes JSON logs to stderr; stdout is for MCP protocol.
func newLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func run() error {
	settings, settingsErr := config.FromEnv()
	logger := newLogger(settings.LogLevel)
	if settingsErr != nil {
		return settingsErr
	}
	logger.Debug("starting",
		"version", Version,
		"build_time", BuildTime,
		"commit", GitCommit,
		"surfaces", string(settings.Surfaces))

	store, err := config.NewStore(settings.OptionsPath)
	if err != nil {
		// The store still serves defaults; a later reload can fix the file.
		logger.Warn("options not loaded, using defaults", "path", settings.OptionsPath, "error", err)
	}

	cache, err := imaging.NewRasterCache(settings.CacheSize)
	if err != nil {
		return fmt.Errorf("raster cache: %w", err)
	}
	loaderOpts := []imaging.LoaderOption{
		imaging.WithHTTPClient(&http.Client{Timeout: settings.FetchTimeout}),
		imaging.WithCache(cache),
		imaging.WithLocalFiles(settings.AllowFiles),
		imaging.WithLogger(logger.With("component", "loader")),
	}
	// A host screen grab only relates to the page when both share a desktop;
	// notify clients send their own viewport capture with the trigger.
	if settings.Surfaces == config.SurfacesLocal {
		loaderOpts = append(loaderOpts, imaging.WithCapturer(imaging.ScreenCapturer{}))
	}
	loader := imaging.NewLoader(loaderOpts...)

	out := server.NewTransport(os.Stdout)
	notifier := server.NewNotifier(out)

	var openSurface dispatch.OpenSurface = notifier
	var copySurface dispatch.CopySurface = notifier
	if settings.Surfaces == config.SurfacesLocal {
		openSurface = dispatch.NewBrowserOpener(logger.With("component", "browser"))
		copySurface = dispatch.NewClipboardSurface(logger.With("component", "clipboard"))
	}
	dispatcher := dispatch.New(openSurface, copySurface, logger.With("component", "dispatch"))

	machine := badge.New(notifier, settings.BadgeClear, logger.With("component", "badge"))
	queue := sequencer.New(settings.QueueDepth, logger.With("component", "sequencer"))

	p, err := pipeline.New(pipeline.Deps{
		Options:    store,
		Resolver:   region.NewResolver(loader, logger.With("component", "region")),
		Decoder:    detection.QRDecoder{TryHarder: true},
		Dispatcher: dispatcher,
		Badge:      machine,
		Queue:      queue,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Detector:  p,
		Options:   store,
		Badge:     machine,
		Transport: out,
		Logger:    logger.With("component", "server"),
		Version:   Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	served := make(chan error, 1)
	go func() { served <- srv.Run() }()

	var serveErr error
	select {
	case serveErr = <-served:
		// stdin closed: let queued cycles finish and their opens land.
		queue.Close()
	case <-ctx.Done():
		logger.Info("signal received, aborting queued cycles", "pending", queue.Pending())
		queue.Abort()
	}
	dispatcher.Wait()
	machine.Close()

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}
