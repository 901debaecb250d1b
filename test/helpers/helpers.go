// test/helpers/helpers.go
package helpers

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/pkg/config"
)

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "sweetshop-test",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			LogOutput:   "discard",
			Profile:     "test",
		},
		Catalog: config.CatalogConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 5 * time.Second,
		},
		Session: config.SessionConfig{
			RedisAddr: "localhost:6379",
			KeyPrefix: "sweetshop-test",
			TTL:       time.Hour,
		},
		Images: config.ImageConfig{
			Backend: config.ImageBackendInline,
		},
		UI: config.UIConfig{
			NotificationTTL: 4 * time.Second,
			RestockDefault:  5,
			DefaultSort:     "name-asc",
		},
		Secrets: config.SecretsConfig{Provider: "env"},
	}
}

// ItemOption customises a test item.
type ItemOption func(*domain.Item)

func WithID(id string) ItemOption {
	return func(i *domain.Item) { i.ID = domain.ItemID(id) }
}

func WithName(name string) ItemOption {
	return func(i *domain.Item) { i.Name = name }
}

func WithCategory(c domain.Category) ItemOption {
	return func(i *domain.Item) { i.Category = c }
}

// WithPrice panics on malformed input.
func WithPrice(price string) ItemOption {
	return func(i *domain.Item) { i.Price = decimal.RequireFromString(price) }
}

func WithQuantity(q int) ItemOption {
	return func(i *domain.Item) { i.Quantity = q }
}

func WithImageURL(url string) ItemOption {
	return func(i *domain.Item) { i.ImageURL = url }
}

// CreateTestItem creates a test catalog item
func CreateTestItem(opts ...ItemOption) domain.Item {
	item := domain.Item{
		ID:       "1",
		Name:     "Kaju Katli",
		Category: domain.CategoryTraditional,
		Price:    decimal.NewFromInt(25),
		Quantity: 10,
	}
	for _, opt := range opts {
		opt(&item)
	}
	return item
}

// CreateTestItems creates count items with ids "1".."count"
func CreateTestItems(count int) []domain.Item {
	categories := domain.KnownCategories()
	items := make([]domain.Item, count)
	for i := 0; i < count; i++ {
		items[i] = CreateTestItem(
			WithID(fmt.Sprintf("%d", i+1)),
			WithName(fmt.Sprintf("Sweet %02d", i+1)),
			WithCategory(categories[i%len(categories)]),
			WithPrice(fmt.Sprintf("%d.50", 10+i)),
			WithQuantity(i%7),
		)
	}
	return items
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNGBytes returns n bytes that start with the PNG signature, enough for
// content sniffing.
func PNGBytes(n int) []byte {
	if n < len(pngSignature) {
		n = len(pngSignature)
	}
	data := make([]byte, n)
	copy(data, pngSignature)
	return data
}

// TestImage returns a PNG attachment of size bytes.
func TestImage(size int) domain.Image {
	return domain.Image{Name: "sweet.png", ContentType: "image/png", Data: PNGBytes(size)}
}

// OversizedImage is one byte over the attachment limit.
func OversizedImage() domain.Image {
	return domain.Image{
		Name:        "huge.png",
		ContentType: "image/png",
		Data:        bytes.Repeat([]byte{0}, domain.MaxImageBytes+1),
	}
}

// StaticToken is a fixed ports.TokenSource.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Failf(t, "condition not met", "within %v: %s", timeout, msg)
}
