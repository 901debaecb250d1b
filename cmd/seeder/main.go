// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ammerola/sweetshop/internal/adapters/catalogapi"
	"github.com/ammerola/sweetshop/internal/adapters/storage"
	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/pkg/config"
	"github.com/ammerola/sweetshop/internal/pkg/logger"
)

// bearer is a fixed token for the length of a seeding run.
type bearer string

func (b bearer) Token() string { return string(b) }

func main() {
	var (
		file     = flag.String("file", "./sweets.xlsx", "Excel workbook with Name, Category, Price, Quantity and optional Image columns")
		email    = flag.String("email", getEnv("SEED_ADMIN_EMAIL", ""), "Admin account email")
		password = flag.String("password", getEnv("SEED_ADMIN_PASSWORD", ""), "Admin account password")
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun   = flag.Bool("dry-run", false, "Validate rows without creating sweets")
		force    = flag.Bool("force", false, "Create rows even when a sweet with the same name exists")
	)
	flag.Parse()

	slogger := logger.SetupLogger(*logLevel, "json", "stderr")
	log := slogger.Logger

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rows, err := readWorkbook(*file)
	if err != nil {
		log.Error("failed to read workbook", slog.String("file", *file), slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("loaded workbook", slog.String("file", *file), slog.Int("rows", len(rows)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := connect(ctx, cfg, *email, *password, log)
	if err != nil {
		log.Error("failed to connect to catalog service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	s.dryRun = *dryRun
	s.force = *force

	sum, err := s.run(ctx, rows)
	printSummary(os.Stdout, sum, *dryRun)
	if err != nil {
		log.Error("seeding aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(sum.Failed) > 0 {
		os.Exit(2)
	}
}

// connect signs in as an admin and builds a seeder around the session.
func connect(ctx context.Context, cfg *config.Config, email, password string, log *slog.Logger) (*seeder, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("admin email and password are required")
	}

	apiCfg := catalogapi.Config{
		BaseURL:   cfg.Catalog.BaseURL,
		Timeout:   cfg.Catalog.Timeout,
		RateLimit: cfg.Catalog.RateLimit,
		Burst:     cfg.Catalog.Burst,

		MaxResponseBytes: cfg.Catalog.MaxResponseBytes,
	}

	auth, err := catalogapi.NewAuthClient(apiCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}
	result, err := auth.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %s", domain.UserMessage(err))
	}
	if result.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%s is not an admin account", email)
	}

	client, err := catalogapi.NewClient(apiCfg, bearer(result.Token), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	images, err := storage.NewImageStore(ctx, cfg.Images.Backend, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		Prefix:          cfg.Images.S3Prefix,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, log)
	if err != nil {
		return nil, err
	}

	return newSeeder(client, images, log, os.Stdout), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
