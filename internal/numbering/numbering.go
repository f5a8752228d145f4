// Package numbering issues strictly increasing, zero-padded document numbers
// per organization and document type. Allocation goes through a per-(org,
// prefix) counter row incremented atomically inside the caller's unit of
// work, so concurrent callers can never observe the same value.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/meridian-erp/meridian/internal/shared"
)

const (
	// Width is the zero-padded digit count of the numeric suffix.
	Width = 8
	// MaxValue is the largest issuable suffix.
	MaxValue = 99999999
)

// ErrSequenceExhausted indicates the numeric range for a prefix ran out.
var ErrSequenceExhausted = fmt.Errorf("numbering: %w: sequence exhausted", shared.ErrLimitExceeded)

// PrefixMismatchError reports a stored number that does not carry the
// expected prefix, which means the sequence being seeded belongs to a
// different document type.
type PrefixMismatchError struct {
	Number string
	Prefix string
}

func (e *PrefixMismatchError) Error() string {
	return fmt.Sprintf("numbering: number %q does not match prefix %q", e.Number, e.Prefix)
}

// Unwrap ties the typed error into the shared taxonomy.
func (e *PrefixMismatchError) Unwrap() error {
	return shared.ErrValidation
}

// SequenceRepository advances the counter for (org, prefix) and returns the
// new value. Implementations must make the increment atomic against
// concurrent callers.
type SequenceRepository interface {
	IncrementSequence(ctx context.Context, orgID int64, prefix string) (int64, error)
}

// Service renders allocated counter values as document numbers.
type Service struct{}

// NewService constructs the numbering service.
func NewService() *Service {
	return &Service{}
}

// Next allocates the next number for (org, prefix) through seq.
func (s *Service) Next(ctx context.Context, seq SequenceRepository, orgID int64, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("numbering: %w: prefix required", shared.ErrValidation)
	}
	value, err := seq.IncrementSequence(ctx, orgID, prefix)
	if err != nil {
		return "", fmt.Errorf("numbering: increment %s sequence: %w", prefix, err)
	}
	return Format(prefix, value)
}

// Format renders value as PREFIX-########.
func Format(prefix string, value int64) (string, error) {
	if value > MaxValue {
		return "", ErrSequenceExhausted
	}
	if value < 1 {
		return "", fmt.Errorf("numbering: %w: non-positive sequence value %d", shared.ErrValidation, value)
	}
	return fmt.Sprintf("%s-%0*d", prefix, Width, value), nil
}

// Parse extracts the numeric suffix of a document number, verifying the
// prefix. Used to seed a counter from the highest pre-existing document
// number when an organization migrates onto counter-backed numbering.
func Parse(number, prefix string) (int64, error) {
	rest, ok := strings.CutPrefix(number, prefix+"-")
	if !ok {
		return 0, &PrefixMismatchError{Number: number, Prefix: prefix}
	}
	value, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("numbering: %w: malformed number %q", shared.ErrValidation, number)
	}
	return value, nil
}
