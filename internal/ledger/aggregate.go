package ledger

// aggregationKey groups candidate entries that must post as one line.
type aggregationKey struct {
	accountID int64
	side      Side
	date      string
}

// Aggregate collapses candidate entries into the minimal set of lines per
// (account, side, date), summing amounts exactly. The first entry seen for a
// group keeps its non-key metadata and its position, so aggregating an
// already-aggregated set is a no-op.
func Aggregate(entries []EntryInput) []EntryInput {
	out := make([]EntryInput, 0, len(entries))
	index := make(map[aggregationKey]int, len(entries))
	for _, entry := range entries {
		key := aggregationKey{
			accountID: entry.AccountID,
			side:      entry.Side,
			date:      entry.Date.Format("2006-01-02"),
		}
		if at, ok := index[key]; ok {
			out[at].Amount = out[at].Amount.Add(entry.Amount)
			continue
		}
		index[key] = len(out)
		out = append(out, entry)
	}
	return out
}
