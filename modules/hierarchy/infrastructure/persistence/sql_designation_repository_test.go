package persistence_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/persistence"
)

func TestSQLDesignationRepository_CreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenant := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO designations")).
		WithArgs(tenant.String(), "CTO", 1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: designations.tenant_id, lower(name) (2067)"))

	repo := persistence.NewSQLDesignationRepository(db)
	_, err = repo.Create(tenantCtx(tenant), designation.Designation{Name: " CTO ", Level: 1})
	require.ErrorIs(t, err, designation.ErrNameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDesignationRepository_UpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenant := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE designations SET updated_at = ?, level = ? WHERE tenant_id = ? AND id = ?")).
		WithArgs(sqlmock.AnyArg(), 2, tenant.String(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := persistence.NewSQLDesignationRepository(db)
	_, err = repo.Update(tenantCtx(tenant), "5", designation.Patch{}.WithLevel(2))
	require.ErrorIs(t, err, designation.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDesignationRepository_UpdateChecksParentFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenant := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM designations WHERE tenant_id = ? AND id = ?")).
		WithArgs(tenant.String(), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	repo := persistence.NewSQLDesignationRepository(db)
	parent := "9"
	_, err = repo.Update(tenantCtx(tenant), "5", designation.Patch{}.WithParent(&parent))
	require.ErrorIs(t, err, designation.ErrParentNotFound)
	require.NoError(t, mock.ExpectationsWereMet(), "no update is issued when the parent is missing")
}

func TestSQLDesignationRepository_GetAllQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery(regexp.QuoteMeta("FROM designations WHERE tenant_id = ?")).WillReturnError(boom)

	repo := persistence.NewSQLDesignationRepository(db)
	_, err = repo.GetAll(tenantCtx(uuid.New()))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "query designations")
}

func TestSQLDesignationRepository_InvalidIDIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := persistence.NewSQLDesignationRepository(db)
	_, err = repo.GetByID(tenantCtx(uuid.New()), "new-abc")
	require.ErrorIs(t, err, designation.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
