package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/shared"
)

type memoryConfigRepo struct {
	configs []Configuration
}

func (r *memoryConfigRepo) ListConfigurations(ctx context.Context, orgID int64) ([]Configuration, error) {
	var out []Configuration
	for _, c := range r.configs {
		if c.OrgID == orgID {
			out = append(out, c)
		}
	}
	return out, nil
}

func fullyConfigured(orgID int64) *memoryConfigRepo {
	repo := &memoryConfigRepo{}
	for i, role := range RequiredConfigTypes {
		repo.configs = append(repo.configs, Configuration{
			OrgID:      orgID,
			ConfigType: role,
			AccountID:  int64(100 + i),
		})
	}
	return repo
}

func TestResolveDefaults(t *testing.T) {
	resolver := NewResolver(fullyConfigured(1))

	defaults, err := resolver.ResolveDefaults(context.Background(), 1)
	require.NoError(t, err)
	for _, role := range RequiredConfigTypes {
		require.NotZero(t, defaults.Account(role), "role %s resolved", role)
	}
}

func TestResolveDefaultsReportsEveryMissingRole(t *testing.T) {
	repo := fullyConfigured(1)
	var kept []Configuration
	for _, c := range repo.configs {
		if c.ConfigType != ConfigCustomerDeposits && c.ConfigType != ConfigRetainedEarnings {
			kept = append(kept, c)
		}
	}
	repo.configs = kept

	_, err := NewResolver(repo).ResolveDefaults(context.Background(), 1)
	require.ErrorIs(t, err, shared.ErrConfiguration)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.ElementsMatch(t, []ConfigType{ConfigCustomerDeposits, ConfigRetainedEarnings}, configErr.Missing)
	require.Contains(t, configErr.Error(), "Customer Deposits")
	require.Contains(t, configErr.Error(), "Retained Earnings")
}

func TestResolveDefaultsOtherOrgIsInvisible(t *testing.T) {
	repo := fullyConfigured(2)

	_, err := NewResolver(repo).ResolveDefaults(context.Background(), 1)
	require.ErrorIs(t, err, shared.ErrConfiguration)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.Len(t, configErr.Missing, len(RequiredConfigTypes))
}
