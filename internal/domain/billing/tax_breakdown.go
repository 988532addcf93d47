package billing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxBreakdown maps a canonical VAT-rate key ("20.00") to the aggregate tax
// amount charged at that rate across all non-deleted items of an invoice.
// It is stored as a JSON column.
type TaxBreakdown map[string]decimal.Decimal

// NewTaxBreakdown returns an empty breakdown
func NewTaxBreakdown() TaxBreakdown {
	return make(TaxBreakdown)
}

// Accumulate adds a tax amount to the bucket for the given rate key
func (b TaxBreakdown) Accumulate(rateKey string, tax decimal.Decimal) {
	b[rateKey] = b[rateKey].Add(tax)
}

// Equal reports whether two breakdowns carry the same rates and amounts
func (b TaxBreakdown) Equal(other TaxBreakdown) bool {
	if len(b) != len(other) {
		return false
	}
	for key, amount := range b {
		otherAmount, ok := other[key]
		if !ok || !amount.Equal(otherAmount) {
			return false
		}
	}
	return true
}

// MarshalJSON renders amounts with two fixed decimals, matching the stored
// monetary precision.
func (b TaxBreakdown) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(b))
	for key, amount := range b {
		out[key] = amount.StringFixed(2)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (b *TaxBreakdown) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make(TaxBreakdown, len(raw))
	for key, val := range raw {
		amount, err := decimal.NewFromString(val)
		if err != nil {
			return fmt.Errorf("invalid tax amount for rate %s: %w", key, err)
		}
		result[key] = amount
	}
	*b = result
	return nil
}

// Value implements driver.Valuer for database storage
func (b TaxBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval
func (b *TaxBreakdown) Scan(value any) error {
	if value == nil {
		*b = NewTaxBreakdown()
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TaxBreakdown", value)
	}
	if len(data) == 0 {
		*b = NewTaxBreakdown()
		return nil
	}
	return b.UnmarshalJSON(data)
}
