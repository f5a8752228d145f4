package numbering

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/shared"
)

type memorySequences struct {
	values map[string]int64
}

func (m *memorySequences) IncrementSequence(ctx context.Context, orgID int64, prefix string) (int64, error) {
	if m.values == nil {
		m.values = make(map[string]int64)
	}
	key := fmt.Sprintf("%d/%s", orgID, prefix)
	m.values[key]++
	return m.values[key], nil
}

func TestNextIsMonotonicAndPadded(t *testing.T) {
	service := NewService()
	seq := &memorySequences{}

	first, err := service.Next(context.Background(), seq, 1, "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-00000001", first)

	second, err := service.Next(context.Background(), seq, 1, "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-00000002", second)

	// A different org starts its own sequence.
	other, err := service.Next(context.Background(), seq, 2, "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-00000001", other)
}

func TestFormatExhaustion(t *testing.T) {
	_, err := Format("INV", MaxValue+1)
	require.ErrorIs(t, err, ErrSequenceExhausted)
	require.ErrorIs(t, err, shared.ErrLimitExceeded)

	last, err := Format("INV", MaxValue)
	require.NoError(t, err)
	require.Equal(t, "INV-99999999", last)
}

func TestParse(t *testing.T) {
	value, err := Parse("INV-00000042", "INV")
	require.NoError(t, err)
	require.Equal(t, int64(42), value)
}

func TestParsePrefixMismatch(t *testing.T) {
	_, err := Parse("RCT-00000042", "INV")

	var mismatch *PrefixMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "RCT-00000042", mismatch.Number)
	require.Equal(t, "INV", mismatch.Prefix)
}

func TestParseMalformedSuffix(t *testing.T) {
	_, err := Parse("INV-abcdefgh", "INV")
	require.ErrorIs(t, err, shared.ErrValidation)
}
