package accounts

import (
	"context"
	"fmt"
)

// ConfigurationRepository loads default-account mappings for an organization.
type ConfigurationRepository interface {
	ListConfigurations(ctx context.Context, orgID int64) ([]Configuration, error)
}

// Resolver builds the DefaultAccounts map consumed by posting operations.
type Resolver struct {
	repo ConfigurationRepository
}

// NewResolver constructs a Resolver.
func NewResolver(repo ConfigurationRepository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveDefaults loads all configuration rows for the organization and
// returns a fully populated role map. When any required role is unmapped the
// call fails with a ConfigurationError naming every missing role; callers
// never receive a partial map.
func (r *Resolver) ResolveDefaults(ctx context.Context, orgID int64) (DefaultAccounts, error) {
	configs, err := r.repo.ListConfigurations(ctx, orgID)
	if err != nil {
		return DefaultAccounts{}, fmt.Errorf("accounts: list configurations: %w", err)
	}
	mapped := make(map[ConfigType]int64, len(RequiredConfigTypes))
	for _, config := range configs {
		mapped[config.ConfigType] = config.AccountID
	}
	var missing []ConfigType
	for _, role := range RequiredConfigTypes {
		if mapped[role] == 0 {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return DefaultAccounts{}, &ConfigurationError{OrgID: orgID, Missing: missing}
	}
	return DefaultAccounts{accounts: mapped}, nil
}
