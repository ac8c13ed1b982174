package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/easy-file-system/internal/adapter/bundle"
	"github.com/vertextoedge/easy-file-system/internal/adapter/filesystem"
	"github.com/vertextoedge/easy-file-system/internal/adapter/httpclient"
	"github.com/vertextoedge/easy-file-system/internal/adapter/sqlite"
	"github.com/vertextoedge/easy-file-system/internal/config"
	"github.com/vertextoedge/easy-file-system/internal/domain"
	"github.com/vertextoedge/easy-file-system/internal/domain/event"
	"github.com/vertextoedge/easy-file-system/internal/logger"
	"github.com/vertextoedge/easy-file-system/internal/port"
	"github.com/vertextoedge/easy-file-system/internal/service/fetcher"
	"github.com/vertextoedge/easy-file-system/internal/service/maintenance"
	"github.com/vertextoedge/easy-file-system/internal/service/server"
)

const version = "0.1.0"

const usage = `usage: easyfs [-config path] <command> [args]

commands:
  constants                                    print the managed directory URIs
  download [-md5] [-H 'Name: value']... <source> <destination-uri>
                                               fetch one file and print the result
  serve                                        run the bridge HTTP server
`

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]
	var code int
	switch cmd {
	case "constants":
		code = runConstants(cfg)
	case "download":
		code = runDownload(cfg, args)
	case "serve":
		code = runServe(cfg, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		code = 2
	}

	logger.Sync()
	os.Exit(code)
}

// app holds the wired components shared by every command
type app struct {
	fs         *filesystem.Manager
	fetcher    *fetcher.Fetcher
	dispatcher *event.InMemoryDispatcher
	journal    port.JournalRepository
	closers    []func() error
}

func newApp(cfg *config.Config, asyncEvents bool) (*app, error) {
	zapLogger := logger.GetZapLogger()
	a := &app{}

	dirs := domain.Directories{
		Document: cfg.Directories.DocumentDir,
		Cache:    cfg.Directories.CacheDir,
	}

	// Open bundled resources
	var resources port.ResourceBundle
	if cfg.Bundle.URL != "" {
		b, err := bundle.Open(context.Background(), cfg.Bundle.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b.Close)
		resources = b
		dirs.Bundle = b.Dir()
	}

	fsManager, err := filesystem.NewManagerWithBufferSize(dirs, cfg.HTTPClient.GetBufferSize())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create filesystem manager: %w", err)
	}
	a.fs = fsManager

	client, err := httpclient.New(&httpclient.Config{
		Timeout:             cfg.HTTPClient.GetTimeout(),
		UserAgent:           cfg.HTTPClient.UserAgent,
		RPS:                 cfg.HTTPClient.RPS,
		Burst:               cfg.HTTPClient.Burst,
		MaxIdleConnsPerHost: cfg.HTTPClient.MaxIdleConnsPerHost,
		BufferSize:          cfg.HTTPClient.GetBufferSize(),
	}, zapLogger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	a.dispatcher = event.NewInMemoryDispatcher(asyncEvents)
	a.dispatcher.Subscribe(event.NewLoggingHandler(zapLogger))

	if cfg.Journal.Enabled {
		dbPath := cfg.GetJournalPath()
		store, err := sqlite.Open(dbPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open journal %s: %w", dbPath, err)
		}
		a.closers = append(a.closers, store.Close)
		a.journal = store
		a.dispatcher.Subscribe(event.NewJournalHandler(store, zapLogger))
	}

	a.fetcher = fetcher.New(fsManager, resources, client, a.dispatcher, zapLogger)
	return a, nil
}

// Close waits for pending event handlers, then releases resources in reverse order
func (a *app) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.GetZapLogger().Warn("failed to close resource", zap.Error(err))
		}
	}
}

func runConstants(cfg *config.Config) int {
	a, err := newApp(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close()

	return printJSON(a.fs.Directories().Constants())
}

// headerFlags collects repeated -H 'Name: value' flags in order
type headerFlags domain.HeaderList

func (h *headerFlags) String() string {
	parts := make([]string, len(*h))
	for i, f := range *h {
		parts[i] = f.Name + ": " + f.Value
	}
	return strings.Join(parts, ", ")
}

func (h *headerFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("header must look like 'Name: value', got %q", s)
	}
	*h = append(*h, domain.HeaderField{Name: name, Value: strings.TrimSpace(value)})
	return nil
}

func runDownload(cfg *config.Config, args []string) int {
	fset := flag.NewFlagSet("download", flag.ContinueOnError)
	md5 := fset.Bool("md5", false, "Compute the MD5 of the written file")
	var headers headerFlags
	fset.Var(&headers, "H", "Extra request header 'Name: value' (repeatable)")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "download needs <source> <destination-uri>")
		return 2
	}

	a, err := newApp(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	task := a.fetcher.DownloadAsync(ctx, domain.DownloadRequest{
		Source:      fset.Arg(0),
		Destination: fset.Arg(1),
		Options: domain.DownloadOptions{
			MD5:     *md5,
			Headers: domain.HeaderList(headers),
		},
	})

	result, err := task.Wait()
	if err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", domain.ErrorCode(err), err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}

	return printJSON(result)
}

func runServe(cfg *config.Config, configPath string) int {
	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting easyfs",
		zap.String("version", version),
		zap.String("config", configPath),
	)

	a, err := newApp(cfg, true)
	if err != nil {
		zapLogger.Error("failed to initialize", zap.Error(err))
		return 1
	}
	defer a.Close()

	// Create HTTP server
	serverCfg := &server.Config{
		BindAddr:     cfg.Server.BindAddr,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
		IdleTimeout:  cfg.Server.GetIdleTimeout(),
	}
	httpServer := server.New(serverCfg, a.fs.Directories(), a.fetcher, a.fs, a.journal, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	// Start journal maintenance
	var maintenanceService *maintenance.Service
	if a.journal != nil {
		maintenanceService = maintenance.New(&maintenance.Config{
			CleanupInterval: cfg.Journal.GetCleanupInterval(),
			Retention:       cfg.Journal.GetRetention(),
		}, a.journal, zapLogger)
		go func() {
			if err := maintenanceService.Start(ctx); err != nil && err != context.Canceled {
				zapLogger.Error("maintenance service stopped with error", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	zapLogger.Info("application started successfully",
		zap.String("http_addr", cfg.Server.BindAddr),
		zap.String("document_dir", a.fs.Directories().Document),
		zap.String("cache_dir", a.fs.Directories().Cache),
	)

	select {
	case err := <-errCh:
		if err != nil {
			zapLogger.Error("HTTP server failed", zap.Error(err))
			return 1
		}
		return 0
	case <-sigChan:
	}

	zapLogger.Info("shutdown signal received, stopping services...")

	cancel()
	if maintenanceService != nil {
		maintenanceService.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
	}

	zapLogger.Info("application stopped successfully")
	return 0
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
