package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const numberPrefixFormat = "INV-%s"

// NumberPrefix builds the daily invoice number prefix, e.g. "INV-20260901"
func NumberPrefix(t time.Time) string {
	return fmt.Sprintf(numberPrefixFormat, t.Format("20060102"))
}

// FormatNumber renders a full invoice number from a prefix and a sequence
// value, zero-padded to four digits: "INV-20260901-0001"
func FormatNumber(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// ParseSuffix extracts the numeric suffix of an invoice number carrying the
// given prefix. Numbers with a non-numeric suffix, such as fallback numbers,
// return ok=false.
func ParseSuffix(number, prefix string) (int, bool) {
	rest, found := strings.CutPrefix(number, prefix+"-")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FallbackNumber builds a collision-resistant invoice number used when the
// sequential allocator is contended: prefix plus eight uppercase hex chars
// from a random UUID, e.g. "INV-20260901-3F9A01BC"
func FallbackNumber(prefix string) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s", prefix, raw[:8])
}

// NumberSequence allocates strictly increasing sequence values per prefix.
// Implementations must guarantee mutual exclusion per prefix: two concurrent
// calls with the same prefix never receive the same value. An implementation
// that cannot acquire the prefix without waiting returns
// shared.ErrNumberContention instead of blocking.
type NumberSequence interface {
	Next(ctx context.Context, prefix string) (int, error)
}

// NumberIssuer assigns invoice numbers from a sequence, optionally falling
// back to random suffixes when the sequence is contended.
type NumberIssuer struct {
	sequence        NumberSequence
	fallbackEnabled bool
	now             func() time.Time
}

// NewNumberIssuer creates a number issuer backed by the given sequence
func NewNumberIssuer(sequence NumberSequence, fallbackEnabled bool) *NumberIssuer {
	return &NumberIssuer{
		sequence:        sequence,
		fallbackEnabled: fallbackEnabled,
		now:             time.Now,
	}
}

// Issue allocates the next invoice number for today's prefix. When the
// sequence reports contention and fallback is enabled, a random-suffix
// number is issued instead; the returned flag reports which path was taken.
func (g *NumberIssuer) Issue(ctx context.Context) (number string, usedFallback bool, err error) {
	prefix := NumberPrefix(g.now())
	n, err := g.sequence.Next(ctx, prefix)
	if err != nil {
		if shared.IsContention(err) && g.fallbackEnabled {
			return FallbackNumber(prefix), true, nil
		}
		return "", false, err
	}
	return FormatNumber(prefix, n), false, nil
}
