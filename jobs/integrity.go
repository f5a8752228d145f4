package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityChecker verifies that posted entries still balance per
// organization. Postings are validated before insert, so a hit here means
// rows were mutated outside the posting path.
type IntegrityChecker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewIntegrityChecker constructs an IntegrityChecker.
func NewIntegrityChecker(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityChecker {
	return &IntegrityChecker{pool: pool, logger: logger}
}

type imbalance struct {
	OrgID int64
	Delta string
}

// Run scans every organization and reports those whose debits and credits
// no longer net to zero.
func (c *IntegrityChecker) Run(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `SELECT org_id,
  SUM(CASE WHEN side = 'DEBIT' THEN amount ELSE -amount END)::text AS delta
FROM entries
GROUP BY org_id
HAVING SUM(CASE WHEN side = 'DEBIT' THEN amount ELSE -amount END) <> 0`)
	if err != nil {
		return fmt.Errorf("jobs: integrity query: %w", err)
	}
	defer rows.Close()

	var found []imbalance
	for rows.Next() {
		var im imbalance
		if err := rows.Scan(&im.OrgID, &im.Delta); err != nil {
			return fmt.Errorf("jobs: integrity scan: %w", err)
		}
		found = append(found, im)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("jobs: integrity rows: %w", err)
	}

	if len(found) == 0 {
		c.logger.Info("ledger integrity check passed", slog.String("job", TaskLedgerIntegrity))
		return nil
	}
	for _, im := range found {
		c.logger.Error("ledger out of balance",
			slog.String("job", TaskLedgerIntegrity),
			slog.Int64("org_id", im.OrgID),
			slog.String("delta", im.Delta))
	}
	return fmt.Errorf("jobs: ledger out of balance for %d organization(s)", len(found))
}

// HandleTask adapts the checker to an Asynq handler.
func (c *IntegrityChecker) HandleTask(ctx context.Context, _ *asynq.Task) error {
	return c.Run(ctx)
}
