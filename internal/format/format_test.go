package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestCurrency tests Naira rendering with grouping and fixed fraction
// digits.
func TestCurrency(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
		want   string
	}{
		{"grouped with cents", decimal.NewFromFloat(1234.5), "₦1,234.50"},
		{"whole amount", decimal.NewFromInt(500), "₦500.00"},
		{"zero", decimal.Zero, "₦0.00"},
		{"large", decimal.NewFromInt(2500000), "₦2,500,000.00"},
		{"rounds to two digits", decimal.NewFromFloat(99.999), "₦100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.amount))
		})
	}
}

// TestDate tests medium-date rendering.
func TestDate(t *testing.T) {
	assert.Equal(t, "Mar 5, 2024", Date(time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, "Dec 25, 2023", Date(time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Jan 1, 2026", Date(time.Date(2026, time.January, 1, 23, 59, 0, 0, time.UTC)))
}
