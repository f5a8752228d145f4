// Package catalog holds the product records that invoice and receipt lines
// are validated against.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/shared"
)

// Product represents a sellable catalog item. IncomeAccountID names the
// revenue account credited when the product is billed.
type Product struct {
	ID              int64
	OrgID           int64
	Code            string
	Name            string
	Price           decimal.Decimal
	IncomeAccountID int64
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RepositoryPort loads catalog products.
type RepositoryPort interface {
	GetProducts(ctx context.Context, orgID int64, productIDs []int64) (map[int64]Product, error)
}

// Require loads the named products and fails when any are missing or
// inactive, so document services validate lines before opening their unit
// of work.
func Require(ctx context.Context, repo RepositoryPort, orgID int64, productIDs []int64) (map[int64]Product, error) {
	products, err := repo.GetProducts(ctx, orgID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("catalog: load products: %w", err)
	}
	for _, id := range productIDs {
		product, ok := products[id]
		if !ok {
			return nil, fmt.Errorf("catalog: %w: product %d", shared.ErrNotFound, id)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("catalog: %w: product %d is inactive", shared.ErrValidation, id)
		}
	}
	return products, nil
}
