package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// VATRate is a tax percentage in [0,100]. Its canonical two-decimal string
// form ("20.00") keys the invoice tax breakdown, so two rates that compare
// equal always land in the same bucket.
type VATRate struct {
	rate decimal.Decimal
}

// NewVATRate creates a VAT rate, rejecting values outside [0,100]
func NewVATRate(rate decimal.Decimal) (VATRate, error) {
	if rate.IsNegative() {
		return VATRate{}, fmt.Errorf("VAT rate cannot be negative: %s", rate)
	}
	if rate.GreaterThan(decimal.NewFromInt(100)) {
		return VATRate{}, fmt.Errorf("VAT rate cannot exceed 100: %s", rate)
	}
	return VATRate{rate: rate}, nil
}

// MustVATRate creates a VAT rate from a string, panicking on invalid input.
// Intended for constants and tests.
func MustVATRate(rate string) VATRate {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		panic(err)
	}
	r, err := NewVATRate(d)
	if err != nil {
		panic(err)
	}
	return r
}

// Rate returns the percentage as a decimal
func (r VATRate) Rate() decimal.Decimal {
	return r.rate
}

// Key returns the canonical breakdown key ("20.00")
func (r VATRate) Key() string {
	return r.rate.StringFixed(2)
}

// TaxOn computes the quantized tax owed on a quantized subtotal
func (r VATRate) TaxOn(subtotal decimal.Decimal) decimal.Decimal {
	return Quantize(subtotal.Mul(r.rate).Div(decimal.NewFromInt(100)))
}

// Equal reports whether two rates charge the same percentage
func (r VATRate) Equal(other VATRate) bool {
	return r.rate.Equal(other.rate)
}

// IsZero reports whether the rate charges no tax
func (r VATRate) IsZero() bool {
	return r.rate.IsZero()
}

// String implements fmt.Stringer
func (r VATRate) String() string {
	return r.Key() + "%"
}

// MarshalJSON implements json.Marshaler using the canonical key form
func (r VATRate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Key())
}

// UnmarshalJSON implements json.Unmarshaler
func (r *VATRate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid VAT rate: %w", err)
	}
	parsed, err := NewVATRate(d)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (r VATRate) Value() (driver.Value, error) {
	return r.rate.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (r *VATRate) Scan(value any) error {
	if value == nil {
		r.rate = decimal.Zero
		return nil
	}
	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	case float64:
		r.rate = decimal.NewFromFloat(v)
		return nil
	case int64:
		r.rate = decimal.NewFromInt(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into VATRate", value)
	}
	d, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid VAT rate value: %w", err)
	}
	r.rate = d
	return nil
}
