package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
)

func TestMapPgError(t *testing.T) {
	other := errors.New("connection reset")
	checkViolation := &pgconn.PgError{Code: "23514"}

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, designation.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("get designation: %w", pgx.ErrNoRows), designation.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "designations_tenant_id_name_key"}, designation.ErrNameTaken},
		{"foreign key violation", &pgconn.PgError{Code: pgForeignKeyViolation}, designation.ErrParentNotFound},
		{"wrapped foreign key violation", fmt.Errorf("update: %w", &pgconn.PgError{Code: pgForeignKeyViolation}), designation.ErrParentNotFound},
		{"other pg error", checkViolation, checkViolation},
		{"other error", other, other},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, mapPgError(tc.err), tc.want)
		})
	}
}

func TestMapPgError_Nil(t *testing.T) {
	require.NoError(t, mapPgError(nil))
}
