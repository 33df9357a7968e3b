package persistence_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/persistence"
	"github.com/iota-uz/orghierarchy/pkg/composables"
)

func tenantCtx(tenantID uuid.UUID) context.Context {
	return composables.WithTenantID(context.Background(), tenantID)
}

func newSQLiteRepo(t *testing.T) designation.Repository {
	t.Helper()
	db, err := persistence.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return persistence.NewSQLDesignationRepository(db)
}

// exerciseRepository runs the same behavioural checks against every implementation.
func exerciseRepository(t *testing.T, repo designation.Repository) {
	t.Helper()
	tenant := uuid.New()
	other := uuid.New()
	ctx := tenantCtx(tenant)

	cto, err := repo.Create(ctx, designation.Designation{Name: "CTO", Level: 1})
	require.NoError(t, err)
	require.NotEmpty(t, cto.ID)
	assert.Equal(t, tenant, cto.TenantID)
	assert.Nil(t, cto.ParentID)

	_, err = repo.Create(ctx, designation.Designation{Name: "cto", Level: 2})
	require.ErrorIs(t, err, designation.ErrNameTaken)

	_, err = repo.Create(tenantCtx(other), designation.Designation{Name: "CTO", Level: 1})
	require.NoError(t, err, "names are unique per tenant")

	lead, err := repo.Create(ctx, designation.Designation{Name: "Engineering Lead", Level: 3})
	require.NoError(t, err)

	lead, err = repo.Update(ctx, lead.ID, designation.Patch{}.WithParent(&cto.ID))
	require.NoError(t, err)
	require.NotNil(t, lead.ParentID)
	assert.Equal(t, cto.ID, *lead.ParentID)
	assert.Equal(t, 3, lead.Level)

	lead, err = repo.Update(ctx, lead.ID, designation.Patch{}.WithLevel(4))
	require.NoError(t, err)
	assert.Equal(t, 4, lead.Level)
	require.NotNil(t, lead.ParentID, "level-only patch keeps the parent")

	missing := "999999"
	_, err = repo.Update(ctx, lead.ID, designation.Patch{}.WithParent(&missing))
	require.ErrorIs(t, err, designation.ErrParentNotFound)

	_, err = repo.Update(ctx, missing, designation.Patch{}.WithLevel(1))
	require.ErrorIs(t, err, designation.ErrNotFound)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.GetByID(tenantCtx(other), lead.ID)
	require.ErrorIs(t, err, designation.ErrNotFound, "tenants are isolated")

	lead, err = repo.Update(ctx, lead.ID, designation.Patch{}.WithParent(nil))
	require.NoError(t, err)
	assert.Nil(t, lead.ParentID)

	_, err = repo.Update(ctx, lead.ID, designation.Patch{}.WithParent(&cto.ID))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, cto.ID))
	got, err := repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID, "children are detached when their parent is deleted")

	require.ErrorIs(t, repo.Delete(ctx, cto.ID), designation.ErrNotFound)
}

func TestInmemDesignationRepository(t *testing.T) {
	exerciseRepository(t, persistence.NewInmemDesignationRepository())
}

func TestSQLDesignationRepository_SQLite(t *testing.T) {
	exerciseRepository(t, newSQLiteRepo(t))
}

func TestRepositories_RequireTenant(t *testing.T) {
	for name, repo := range map[string]designation.Repository{
		"inmem":  persistence.NewInmemDesignationRepository(),
		"sqlite": newSQLiteRepo(t),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetAll(context.Background())
			require.ErrorIs(t, err, composables.ErrNoTenantID)
		})
	}
}
