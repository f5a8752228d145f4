package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return out
}

func TestAggregateMergesSameAccountSideDate(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	entries := []EntryInput{
		{AccountID: 1, Side: SideDebit, Amount: d("30.00"), Date: day, CreatedBy: 7},
		{AccountID: 1, Side: SideDebit, Amount: d("20.00"), Date: day, CreatedBy: 9},
	}

	out := Aggregate(entries)

	require.Len(t, out, 1)
	require.True(t, out[0].Amount.Equal(d("50.00")))
	require.Equal(t, int64(7), out[0].CreatedBy, "first entry keeps its metadata")
}

func TestAggregateKeepsDistinctGroups(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	nextDay := day.AddDate(0, 0, 1)
	entries := []EntryInput{
		{AccountID: 1, Side: SideDebit, Amount: d("10.00"), Date: day},
		{AccountID: 1, Side: SideCredit, Amount: d("10.00"), Date: day},
		{AccountID: 2, Side: SideDebit, Amount: d("10.00"), Date: day},
		{AccountID: 1, Side: SideDebit, Amount: d("10.00"), Date: nextDay},
	}

	out := Aggregate(entries)

	require.Len(t, out, 4)
}

func TestAggregateIdempotent(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	entries := []EntryInput{
		{AccountID: 1, Side: SideDebit, Amount: d("30.00"), Date: day},
		{AccountID: 2, Side: SideCredit, Amount: d("50.00"), Date: day},
		{AccountID: 1, Side: SideDebit, Amount: d("20.00"), Date: day},
	}

	once := Aggregate(entries)
	twice := Aggregate(once)

	require.Equal(t, len(once), len(twice))
	for i := range once {
		require.Equal(t, once[i].AccountID, twice[i].AccountID)
		require.Equal(t, once[i].Side, twice[i].Side)
		require.True(t, once[i].Amount.Equal(twice[i].Amount))
	}
}

func TestAggregateOrderIndependentTotals(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	forward := []EntryInput{
		{AccountID: 1, Side: SideDebit, Amount: d("12.50"), Date: day},
		{AccountID: 2, Side: SideDebit, Amount: d("7.25"), Date: day},
		{AccountID: 1, Side: SideDebit, Amount: d("0.25"), Date: day},
	}
	backward := []EntryInput{forward[2], forward[1], forward[0]}

	sum := func(entries []EntryInput) map[int64]decimal.Decimal {
		totals := make(map[int64]decimal.Decimal)
		for _, entry := range Aggregate(entries) {
			totals[entry.AccountID] = totals[entry.AccountID].Add(entry.Amount)
		}
		return totals
	}

	left, right := sum(forward), sum(backward)
	require.Len(t, left, len(right))
	for account, total := range left {
		require.True(t, total.Equal(right[account]))
	}
}
