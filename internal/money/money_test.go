package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.00", Format(decimal.Zero))
	assert.Equal(t, "999.50", Format(decimal.RequireFromString("999.5")))
	assert.Equal(t, "51 000.00", Format(decimal.RequireFromString("51000")))
	assert.Equal(t, "-1 000 000.01", Format(decimal.RequireFromString("-1000000.01")))
	assert.Equal(t, "1 234.57", Format(decimal.RequireFromString("1234.565")))
	assert.Equal(t, "-0.50", Format(decimal.RequireFromString("-0.5")))
	assert.Equal(t, "0.00", Format(decimal.RequireFromString("-0.001")))
	assert.Equal(t, "123 456 789 012.34", Format(decimal.RequireFromString("123456789012.34")))
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"50000", "50000", true},
		{"50 000,50", "50000.5", true},
		{"1,234.56", "1234.56", true},
		{"1 200 грн", "1200", true},
		{"", "0", false},
		{"n/a", "0", false},
		{"-5", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Parse(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}
