// cmd/seeder/seeder.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
	"github.com/ammerola/sweetshop/internal/core/services"
)

// seeder creates workbook rows in the catalog service.
type seeder struct {
	client ports.CatalogClient
	images ports.ImageStore
	logger *slog.Logger
	out    io.Writer
	dryRun bool
	force  bool
	read   func(string) ([]byte, error)
}

// summary tallies a seeding run.
type summary struct {
	Created int
	Skipped int
	Failed  []string
}

func newSeeder(client ports.CatalogClient, images ports.ImageStore, logger *slog.Logger, out io.Writer) *seeder {
	return &seeder{client: client, images: images, logger: logger, out: out, read: os.ReadFile}
}

// run creates every row whose name is not already in the catalog, unless
// force is set. A rejected session aborts the run; other failures are
// recorded and seeding continues.
func (s *seeder) run(ctx context.Context, rows []seedRow) (summary, error) {
	var sum summary

	existing := make(map[string]bool)
	if !s.force {
		items, err := s.client.ListAll(ctx)
		if err != nil {
			return sum, fmt.Errorf("failed to list existing sweets: %w", err)
		}
		for _, item := range items {
			existing[strings.ToLower(item.Name)] = true
		}
	}

	for i, row := range rows {
		name := row.Draft.Name
		fmt.Fprintf(s.out, "PROGRESS: Seeding %d/%d: %s\n", i+1, len(rows), name)

		if existing[strings.ToLower(strings.TrimSpace(name))] {
			s.logger.Info("skipping existing sweet", slog.String("name", name))
			fmt.Fprintf(s.out, "SKIP: %s already exists\n", name)
			sum.Skipped++
			continue
		}

		item, err := s.create(ctx, row)
		if errors.Is(err, domain.ErrUnauthenticated) {
			return sum, err
		}
		if err != nil {
			msg := fmt.Sprintf("row %d (%s): %s", row.Line, name, domain.UserMessage(err))
			s.logger.Error("failed to seed sweet",
				slog.Int("row", row.Line),
				slog.String("name", name),
				slog.String("error", err.Error()))
			fmt.Fprintf(s.out, "ERROR: %s\n", msg)
			sum.Failed = append(sum.Failed, msg)
			continue
		}

		existing[strings.ToLower(name)] = true
		sum.Created++
		if s.dryRun {
			fmt.Fprintf(s.out, "VALID: %s\n", name)
			continue
		}
		fmt.Fprintf(s.out, "SUCCESS: Created %s (#%s)\n", item.Name, item.ID)
	}

	s.logger.Info("seed operation completed",
		slog.Int("created", sum.Created),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", len(sum.Failed)),
		slog.Bool("dry_run", s.dryRun))
	return sum, nil
}

func (s *seeder) create(ctx context.Context, row seedRow) (domain.Item, error) {
	draft := row.Draft
	if row.ImagePath != "" {
		img, err := loadImage(row.ImagePath, s.read)
		if err != nil {
			return domain.Item{}, &domain.ValidationError{Field: "image", Message: "Image file could not be read", Err: err}
		}
		draft.Image = &img
	}

	if s.dryRun {
		_, err := draft.Validate()
		return domain.Item{}, err
	}
	return services.SaveDraft(ctx, s.client, s.images, draft)
}

// printSummary writes the closing report.
func printSummary(w io.Writer, sum summary, dryRun bool) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(w, "SEEDING SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Created: %d\n", sum.Created)
	fmt.Fprintf(w, "Skipped: %d\n", sum.Skipped)
	fmt.Fprintf(w, "Failed:  %d\n", len(sum.Failed))
	for _, f := range sum.Failed {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	if dryRun {
		fmt.Fprintln(w, "\n[DRY RUN] No sweets were created")
	}
}
