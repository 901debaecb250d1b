package domain_test

import (
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		input         string
		expected      domain.SortKey
		expectedLabel string
		wantError     bool
	}{
		{input: "name-asc", expected: domain.SortKey{Field: domain.SortByName, Direction: domain.Ascending}, expectedLabel: "Name (A-Z)"},
		{input: " PRICE-DESC ", expected: domain.SortKey{Field: domain.SortByPrice, Direction: domain.Descending}, expectedLabel: "Price (High to Low)"},
		{input: "quantity-asc", expected: domain.SortKey{Field: domain.SortByQuantity, Direction: domain.Ascending}, expectedLabel: "Stock (Low to High)"},
		{input: "category-desc", expected: domain.SortKey{Field: domain.SortByCategory, Direction: domain.Descending}, expectedLabel: "Category (Z-A)"},
		{input: "rating-asc", wantError: true},
		{input: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key, err := domain.ParseSortKey(tt.input)
			if tt.wantError {
				require.Error(t, err)
				assert.Equal(t, domain.KindValidation, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, key)
			assert.Equal(t, tt.expectedLabel, key.Label())
		})
	}
}

func TestSortKey_AllAndReverse(t *testing.T) {
	keys := domain.AllSortKeys()
	require.Len(t, keys, 8)
	assert.Equal(t, domain.DefaultSortKey, keys[0])

	seen := map[string]bool{}
	for _, k := range keys {
		assert.False(t, seen[k.String()], "duplicate key %s", k)
		seen[k.String()] = true
		assert.Equal(t, k, k.Reverse().Reverse())
		assert.NotEqual(t, k.Direction, k.Reverse().Direction)
	}
}

func TestBuildQuery(t *testing.T) {
	lo := decimal.NewFromInt(10)
	hi := decimal.RequireFromString("49.99")

	tests := []struct {
		name     string
		criteria domain.SearchCriteria
		expected string
	}{
		{name: "empty", criteria: domain.SearchCriteria{}, expected: ""},
		{name: "blank_text_is_absent", criteria: domain.SearchCriteria{Name: "  ", Category: " "}, expected: ""},
		{name: "category_only", criteria: domain.SearchCriteria{Category: domain.CategoryPremium}, expected: "category=Premium"},
		{name: "name_trimmed", criteria: domain.SearchCriteria{Name: " kaju "}, expected: "name=kaju"},
		{
			name:     "all_fields",
			criteria: domain.SearchCriteria{Name: "katli", Category: domain.CategoryTraditional, MinPrice: &lo, MaxPrice: &hi},
			expected: "category=Traditional&max_price=49.99&min_price=10&name=katli",
		},
		{
			name:     "zero_bound_is_present",
			criteria: domain.SearchCriteria{MinPrice: &decimal.Zero},
			expected: "min_price=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := domain.BuildQuery(tt.criteria)
			assert.Equal(t, tt.expected, q.Encode())
			assert.Equal(t, tt.expected == "", tt.criteria.IsEmpty())
		})
	}
}

func TestBuildQuery_EveryCombination(t *testing.T) {
	lo := decimal.NewFromInt(10)
	hi := decimal.NewFromInt(50)
	fields := []struct {
		key   string
		value string
		set   func(*domain.SearchCriteria)
	}{
		{key: "name", value: "barfi", set: func(c *domain.SearchCriteria) { c.Name = "barfi" }},
		{key: "category", value: "Modern", set: func(c *domain.SearchCriteria) { c.Category = domain.CategoryModern }},
		{key: "min_price", value: "10", set: func(c *domain.SearchCriteria) { c.MinPrice = &lo }},
		{key: "max_price", value: "50", set: func(c *domain.SearchCriteria) { c.MaxPrice = &hi }},
	}

	for mask := 1; mask < 1<<len(fields); mask++ {
		var (
			criteria domain.SearchCriteria
			present  []string
		)
		for i, f := range fields {
			if mask&(1<<i) != 0 {
				f.set(&criteria)
				present = append(present, f.key)
			}
		}

		t.Run(strings.Join(present, "+"), func(t *testing.T) {
			q := domain.BuildQuery(criteria)
			assert.False(t, criteria.IsEmpty())

			keys := make([]string, 0, len(q))
			for k := range q {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, present, keys)

			for _, f := range fields {
				if slices.Contains(present, f.key) {
					assert.Equal(t, f.value, q.Get(f.key))
				}
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input     string
		expected  domain.Role
		wantError bool
	}{
		{input: "admin", expected: domain.RoleAdmin},
		{input: " Admin ", expected: domain.RoleAdmin},
		{input: "user", expected: domain.RoleCustomer},
		{input: "customer", expected: domain.RoleCustomer},
		{input: "root", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, err := domain.ParseRole(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, role)
		})
	}

	assert.Equal(t, "admin", domain.RoleAdmin.WireName())
	assert.Equal(t, "user", domain.RoleCustomer.WireName())
}

func TestSession_Valid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session domain.Session
		valid   bool
	}{
		{name: "no_expiry", session: domain.Session{Token: "t"}, valid: true},
		{name: "future_expiry", session: domain.Session{Token: "t", ExpiresAt: now.Add(time.Minute)}, valid: true},
		{name: "expires_now", session: domain.Session{Token: "t", ExpiresAt: now}, valid: false},
		{name: "past_expiry", session: domain.Session{Token: "t", ExpiresAt: now.Add(-time.Second)}, valid: false},
		{name: "no_token", session: domain.Session{}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.session.Valid(now))
		})
	}
}

func TestCheckImage(t *testing.T) {
	png := func(size int) []byte {
		data := make([]byte, size)
		copy(data, "\x89PNG\r\n\x1a\n")
		return data
	}
	tests := []struct {
		name        string
		image       domain.Image
		expectedMsg string
		expectedErr error
	}{
		{name: "small", image: domain.Image{Name: "x.png", Data: png(1024)}},
		{name: "exactly_limit", image: domain.Image{Name: "x.png", Data: png(domain.MaxImageBytes)}},
		{
			name:        "one_byte_over",
			image:       domain.Image{Name: "x.png", Data: png(domain.MaxImageBytes + 1)},
			expectedMsg: "Image size should be less than 5MB",
			expectedErr: domain.ErrImageTooLarge,
		},
		{name: "empty", image: domain.Image{Name: "x.png"}, expectedMsg: "Image file is empty"},
		{name: "declared_image_type", image: domain.Image{Name: "x.webp", ContentType: "image/webp", Data: []byte("RIFF")}},
		{
			name:        "sniffed_text",
			image:       domain.Image{Name: "notes.png", Data: []byte("just some notes")},
			expectedMsg: "Please choose an image file",
			expectedErr: domain.ErrNotAnImage,
		},
		{
			name:        "declared_pdf",
			image:       domain.Image{Name: "menu.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")},
			expectedMsg: "Please choose an image file",
			expectedErr: domain.ErrNotAnImage,
		},
		{
			name:        "unknown_binary",
			image:       domain.Image{Name: "blob", Data: make([]byte, 32)},
			expectedMsg: "Please choose an image file",
			expectedErr: domain.ErrNotAnImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.CheckImage(tt.image)
			if tt.expectedMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.expectedMsg, domain.UserMessage(err))
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestImage_MediaType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	assert.Equal(t, "image/png", domain.Image{Data: png}.MediaType())
	assert.Equal(t, "image/webp", domain.Image{ContentType: "image/webp", Data: png}.MediaType())
	assert.Equal(t, http.DetectContentType(nil), domain.Image{}.MediaType())
}
