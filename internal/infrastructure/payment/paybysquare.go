package payment

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/shopspring/decimal"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
)

const (
	payBySquareVersion         = "1"
	payBySquarePaymentRequest  = "1"
	payBySquarePriorityOption  = "1"
	payBySquareCountrySlovakia = "1"
	payBySquareProtocolVersion = "1.2.203.2.4.5.1"
	payBySquareDateLayout      = "20060102"

	// Amounts below 1.00 are bumped to the scheme minimum
	minAmountCents int64 = 100

	defaultDueDays = 30
	qrImageSize    = 512
)

// PayBySquareGenerator builds Pay by Square payment payloads for invoices.
// The payload is a pipe-joined field list consumed by Slovak banking apps.
type PayBySquareGenerator struct {
	now func() time.Time
}

// NewPayBySquareGenerator creates a new generator
func NewPayBySquareGenerator() *PayBySquareGenerator {
	return &PayBySquareGenerator{now: time.Now}
}

// Generate builds the payment string for an invoice. A zero dueDate falls
// back to 30 days from now.
func (g *PayBySquareGenerator) Generate(invoiceNumber string, amount decimal.Decimal, currency valueobject.Currency, dueDate time.Time, iban, beneficiary string) (string, error) {
	if invoiceNumber == "" {
		return "", shared.NewDomainError("INVALID_PAYMENT", "Invoice number is required for a payment string")
	}
	if amount.IsNegative() {
		return "", shared.NewDomainError("INVALID_PAYMENT", "Payment amount cannot be negative")
	}
	if !currency.IsValid() {
		return "", shared.NewDomainError("INVALID_PAYMENT", fmt.Sprintf("Unsupported currency %q", currency))
	}

	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	if cents < minAmountCents {
		cents = minAmountCents
	}

	if dueDate.IsZero() {
		dueDate = g.now().AddDate(0, 0, defaultDueDays)
	}

	fields := []string{
		payBySquareVersion,
		payBySquarePaymentRequest,
		payBySquarePriorityOption,
		fmt.Sprintf("%d", cents),
		currency.NumericCode(),
		"0", // variable symbol
		"0", // specific symbol
		"0", // constant symbol
		dueDate.Format(payBySquareDateLayout),
		"0", // payment note
		payBySquareCountrySlovakia,
		zeroIfEmpty(iban),
		"0", // SWIFT
		zeroIfEmpty(beneficiary),
		"0", // beneficiary address line 1
		"0", // beneficiary address line 2
		invoiceNumber,
		"0", // payment note for recipient
		"0", // payment type
		payBySquareProtocolVersion,
	}

	payload := strings.Join(fields, "|")
	payload = strings.TrimRight(payload, "|0") + "|"
	return payload, nil
}

// QRCodePNG renders a payment string as a PNG QR code
func QRCodePNG(payload string) ([]byte, error) {
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment QR: %w", err)
	}

	code, err = barcode.Scale(code, qrImageSize, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to scale payment QR: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("failed to render payment QR: %w", err)
	}
	return buf.Bytes(), nil
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
