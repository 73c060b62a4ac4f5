package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tasking/internal/auth"
	"github.com/rpggio/tasking/internal/backend"
	"github.com/rpggio/tasking/internal/config"
	"github.com/rpggio/tasking/internal/domain/activity"
	"github.com/rpggio/tasking/internal/domain/lookup"
	"github.com/rpggio/tasking/internal/domain/workspace"
	"github.com/rpggio/tasking/internal/mcp"
	"github.com/rpggio/tasking/internal/sqlite"
	"github.com/rpggio/tasking/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	services, err := buildServices(cfg, db, logger)
	if err != nil {
		logger.Error("failed to build services", "error", err)
		os.Exit(1)
	}

	var validator *auth.JWTValidator
	if cfg.Auth.Enabled && cfg.Transport.Mode == "http" {
		validator, err = newValidator(cfg.Auth)
		if err != nil {
			logger.Error("failed to load token validator", "error", err)
			os.Exit(1)
		}
	}

	mcpConfig := mcp.Config{
		Services:      services,
		AuthEnabled:   validator != nil,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	}
	if validator != nil {
		mcpConfig.Resolver = validator
	}
	mcpServer := mcp.NewServer(mcpConfig)

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		return
	}

	handler := mcp.NewHandler(services.Workspaces, services.Lookups, services.Activity)
	tenantMiddleware := transport.DefaultTenantMiddleware("default")
	if validator != nil {
		tenantMiddleware = transport.AuthMiddleware(validator)
	}
	var extra []func(http.Handler) http.Handler
	if cfg.Server.RateLimit > 0 {
		extra = append(extra, transport.NewTenantRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst).Middleware)
	}
	router := transport.NewServer(handler, tenantMiddleware, extra...)
	runHTTPMode(logger, mcpServer, router, cfg.Server.Host, cfg.Server.Port)
}

func buildServices(cfg config.Config, db *sqlite.DB, logger *slog.Logger) (mcp.Services, error) {
	activityRepo := sqlite.NewActivityRepository(db)

	var (
		records workspace.Backend = backend.Disabled{}
		lookups mcp.LookupService
	)
	if cfg.Backend.URL != "" {
		client, err := backend.NewClient(backend.Options{
			BaseURL:       cfg.Backend.URL,
			Token:         cfg.Backend.Token,
			Timeout:       cfg.Backend.Timeout,
			RatePerSecond: cfg.Backend.Rate,
			Burst:         cfg.Backend.Burst,
			Logger:        logger.With("component", "backend"),
		})
		if err != nil {
			return mcp.Services{}, err
		}
		records = client
		lookups = lookup.NewService(client, cfg.Backend.OptionsTTL, logger)
	} else {
		logger.Warn("no backend url configured; only offline tools will work")
	}

	activitySvc := activity.NewService(activityRepo, logger)
	if _, err := activitySvc.Prune(context.Background(), cfg.DB.ActivityRetention); err != nil {
		logger.Warn("failed to prune activity log", "error", err)
	}

	return mcp.Services{
		Workspaces: workspace.NewService(
			sqlite.NewWorkspaceRepository(db),
			sqlite.NewEditRepository(db),
			sqlite.NewSelectionRepository(db),
			activityRepo,
			records,
			logger,
		),
		Lookups:  lookups,
		Activity: activitySvc,
	}, nil
}

func newValidator(cfg config.AuthConfig) (*auth.JWTValidator, error) {
	if cfg.PublicKeyPath != "" {
		return auth.NewRSAValidatorFromFile(cfg.PublicKeyPath, cfg.Issuer)
	}
	return auth.NewHMACValidator([]byte(cfg.HMACSecret), cfg.Issuer)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	stdio := &sdkmcp.StdioTransport{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, stdio); err != nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, mcpServer *sdkmcp.Server, router http.Handler, host string, port int) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/mcp/", mcpHandler)
	mux.Handle("/", router)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
