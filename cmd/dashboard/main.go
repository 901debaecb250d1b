// cmd/dashboard/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/sweetshop/internal/adapters/catalogapi"
	redis_a "github.com/ammerola/sweetshop/internal/adapters/redis_adapter"
	"github.com/ammerola/sweetshop/internal/adapters/storage"
	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
	"github.com/ammerola/sweetshop/internal/core/services"
	"github.com/ammerola/sweetshop/internal/export"
	"github.com/ammerola/sweetshop/internal/pkg/config"
	"github.com/ammerola/sweetshop/internal/pkg/logger"
)

const dashboardLogFile = "sweetshop-dashboard.log"

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	slogger := logger.SetupLogger("info", "json", "stderr")

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings. The terminal belongs to the
	// UI, so console output is redirected to a file.
	output := cfg.App.LogOutput
	if output == "stderr" || output == "stdout" {
		output = "file:" + dashboardLogFile
	}
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat, output)
	slogger.Info("starting sweetshop dashboard",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("environment", cfg.App.Environment),
		slog.String("catalog", cfg.Catalog.BaseURL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background changes only wake the model; it re-reads state itself, so a
	// pending wake-up absorbs any further ones.
	events := make(chan struct{}, 1)
	wake := func() {
		select {
		case events <- struct{}{}:
		default:
		}
	}

	deps, err := initializeDependencies(ctx, cfg, slogger.Logger, func(*domain.Notification) { wake() })
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()
	deps.store.OnChange(func(services.Snapshot) { wake() })

	model := newModel(ctx, deps, slogger, events)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		slogger.Error("dashboard stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("dashboard closed")
}

// dependencies holds everything the dashboard drives.
type dependencies struct {
	cfg         *config.Config
	redisClient *redis.Client
	sessions    *services.SessionManager
	store       *services.CatalogStore
	coordinator *services.Coordinator
	exporter    *export.Exporter
}

func (d *dependencies) cleanup() {
	if d.redisClient != nil {
		d.redisClient.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	onNotify func(*domain.Notification)) (*dependencies, error) {

	sm, err := config.NewSecretsManager(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets manager: %w", err)
	}
	if err := config.ApplySecrets(ctx, cfg, sm); err != nil {
		return nil, err
	}

	logger.Info("connecting to Redis", slog.String("addr", cfg.Session.RedisAddr))
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Session.RedisAddr,
		Password: cfg.Session.RedisPassword,
		DB:       cfg.Session.RedisDB,
	})
	deps, err := wire(ctx, cfg, redisClient, logger, onNotify)
	if err != nil {
		redisClient.Close()
		return nil, err
	}
	return deps, nil
}

// wire builds the dashboard around an already connected Redis client.
func wire(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger,
	onNotify func(*domain.Notification)) (*dependencies, error) {

	catalogCfg := catalogapi.Config{
		BaseURL:   cfg.Catalog.BaseURL,
		Timeout:   cfg.Catalog.Timeout,
		RateLimit: cfg.Catalog.RateLimit,
		Burst:     cfg.Catalog.Burst,

		MaxResponseBytes: cfg.Catalog.MaxResponseBytes,
	}

	authClient, err := catalogapi.NewAuthClient(catalogCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	sessionStore := redis_a.NewSessionStore(redisClient, cfg.Session.KeyPrefix, cfg.App.Profile, cfg.Session.TTL, logger)
	if err := sessionStore.Ping(ctx); err != nil {
		return nil, err
	}
	sessions := services.NewSessionManager(authClient, sessionStore, logger)
	if err := sessions.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	catalogClient, err := catalogapi.NewClient(catalogCfg, sessions, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	images, err := newImageStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store := services.NewCatalogStore(catalogClient, logger)
	notifier := services.NewNotifier(cfg.UI.NotificationTTL, services.WithNotifyListener(onNotify))
	coordinator := services.NewCoordinator(store, sessions, images, notifier, logger,
		services.WithRestockDefault(cfg.UI.RestockDefault))

	return &dependencies{
		cfg:         cfg,
		redisClient: redisClient,
		sessions:    sessions,
		store:       store,
		coordinator: coordinator,
		exporter:    export.NewExporter(logger),
	}, nil
}

func newImageStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.ImageStore, error) {
	return storage.NewImageStore(ctx, cfg.Images.Backend, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		Prefix:          cfg.Images.S3Prefix,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, logger)
}
