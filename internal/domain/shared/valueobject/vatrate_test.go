package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVATRate(t *testing.T) {
	tests := []struct {
		name    string
		rate    string
		wantErr bool
	}{
		{name: "standard rate", rate: "20.00", wantErr: false},
		{name: "zero rate", rate: "0", wantErr: false},
		{name: "full rate", rate: "100", wantErr: false},
		{name: "negative rate", rate: "-1", wantErr: true},
		{name: "above hundred", rate: "100.01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVATRate(decimal.RequireFromString(tt.rate))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVATRateKey(t *testing.T) {
	tests := []struct {
		rate     string
		expected string
	}{
		{rate: "20", expected: "20.00"},
		{rate: "19.5", expected: "19.50"},
		{rate: "0", expected: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.rate, func(t *testing.T) {
			r := MustVATRate(tt.rate)
			assert.Equal(t, tt.expected, r.Key())
		})
	}
}

func TestVATRateTaxOn(t *testing.T) {
	tests := []struct {
		name     string
		rate     string
		subtotal string
		expected string
	}{
		{name: "20 percent of 20", rate: "20", subtotal: "20.00", expected: "4.00"},
		{name: "20 percent of 25", rate: "20", subtotal: "25.00", expected: "5.00"},
		{name: "zero rate", rate: "0", subtotal: "100.00", expected: "0.00"},
		{name: "rounding half up", rate: "20", subtotal: "0.13", expected: "0.03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MustVATRate(tt.rate)
			tax := r.TaxOn(decimal.RequireFromString(tt.subtotal))
			assert.Equal(t, tt.expected, tax.StringFixed(2))
		})
	}
}

func TestVATRateEqual(t *testing.T) {
	a := MustVATRate("20")
	b := MustVATRate("20.00")
	c := MustVATRate("19")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestVATRateScanValue(t *testing.T) {
	r := MustVATRate("21.50")
	v, err := r.Value()
	require.NoError(t, err)

	var decoded VATRate
	require.NoError(t, decoded.Scan(v))
	assert.True(t, r.Equal(decoded))
}
