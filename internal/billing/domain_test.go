package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestInvoiceStatusTransitions(t *testing.T) {
	cases := []struct {
		from    InvoiceStatus
		to      InvoiceStatus
		allowed bool
	}{
		{InvoicePending, InvoicePartial, true},
		{InvoicePending, InvoicePaid, true},
		{InvoicePending, InvoiceVoided, true},
		{InvoicePartial, InvoicePartial, true},
		{InvoicePartial, InvoicePaid, true},
		{InvoicePartial, InvoiceVoided, false},
		{InvoicePaid, InvoicePartial, false},
		{InvoicePaid, InvoiceVoided, false},
		{InvoiceVoided, InvoicePending, false},
		{InvoiceVoided, InvoicePaid, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPrepaymentStatusFromRemainingBalance(t *testing.T) {
	amount := decimal.RequireFromString("100.00")

	require.Equal(t, PrepaymentAvailable, prepaymentStatusFor(amount, amount))
	require.Equal(t, PrepaymentPartiallyApplied, prepaymentStatusFor(decimal.RequireFromString("40.00"), amount))
	require.Equal(t, PrepaymentFullyApplied, prepaymentStatusFor(decimal.Zero, amount))
}
