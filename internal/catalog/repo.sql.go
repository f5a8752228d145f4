package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists catalog products.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProducts loads products by id scoped to the organization.
func (r *Repository) GetProducts(ctx context.Context, orgID int64, productIDs []int64) (map[int64]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, code, name, price::text, income_account_id, is_active, created_at, updated_at
FROM products WHERE org_id=$1 AND id = ANY($2)`, orgID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := make(map[int64]Product)
	for rows.Next() {
		var (
			p     Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Code, &p.Name, &price, &p.IncomeAccountID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}
