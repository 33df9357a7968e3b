package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/repo"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const designationColumns = `id::text, tenant_id, name, level, parent_designation_id::text, created_at, updated_at`

type PgDesignationRepository struct{}

func NewPgDesignationRepository() designation.Repository {
	return &PgDesignationRepository{}
}

func tenantIDs(ctx context.Context) (uuid.UUID, pgtype.UUID, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return uuid.Nil, pgtype.UUID{}, fmt.Errorf("failed to get tenant from context: %w", err)
	}
	return tenantID, pgtype.UUID{Bytes: tenantID, Valid: true}, nil
}

// parseID converts an external designation id into the bigserial key.
func parseID(id string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

type designationRow struct {
	ID        string
	TenantID  pgtype.UUID
	Name      string
	Level     int32
	ParentID  pgtype.Text
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (row designationRow) toDomain() designation.Designation {
	d := designation.Designation{
		ID:        row.ID,
		Name:      row.Name,
		Level:     int(row.Level),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.TenantID.Valid {
		d.TenantID = row.TenantID.Bytes
	}
	if row.ParentID.Valid {
		v := row.ParentID.String
		d.ParentID = &v
	}
	return d
}

func scanDesignation(row pgx.Row) (designation.Designation, error) {
	var r designationRow
	if err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.Level, &r.ParentID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return designation.Designation{}, err
	}
	return r.toDomain(), nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return designation.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return designation.ErrNameTaken
		case pgForeignKeyViolation:
			return designation.ErrParentNotFound
		}
	}
	return err
}

func (r *PgDesignationRepository) GetAll(ctx context.Context) ([]designation.Designation, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+designationColumns+` FROM designations WHERE tenant_id = $1 ORDER BY id`, pgTenantID)
	if err != nil {
		return nil, gerrors.Wrap(err, "query designations")
	}
	defer rows.Close()

	out := []designation.Designation{}
	for rows.Next() {
		d, err := scanDesignation(rows)
		if err != nil {
			return nil, gerrors.Wrap(err, "scan designation")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "iterate designations")
	}
	return out, nil
}

func (r *PgDesignationRepository) GetByID(ctx context.Context, id string) (designation.Designation, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	key, ok := parseID(id)
	if !ok {
		return designation.Designation{}, designation.ErrNotFound
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	d, err := scanDesignation(tx.QueryRow(ctx, `SELECT `+designationColumns+` FROM designations WHERE tenant_id = $1 AND id = $2`, pgTenantID, key))
	if err != nil {
		return designation.Designation{}, mapPgError(err)
	}
	return d, nil
}

func (r *PgDesignationRepository) parentArg(ctx context.Context, tx repo.Tx, tenantID pgtype.UUID, parentID *string) (pgtype.Int8, error) {
	if parentID == nil {
		return pgtype.Int8{}, nil
	}
	key, ok := parseID(*parentID)
	if !ok {
		return pgtype.Int8{}, designation.ErrParentNotFound
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM designations WHERE tenant_id = $1 AND id = $2)`, tenantID, key).Scan(&exists); err != nil {
		return pgtype.Int8{}, gerrors.Wrap(err, "check parent")
	}
	if !exists {
		return pgtype.Int8{}, designation.ErrParentNotFound
	}
	return pgtype.Int8{Int64: key, Valid: true}, nil
}

func (r *PgDesignationRepository) Create(ctx context.Context, d designation.Designation) (designation.Designation, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	parent, err := r.parentArg(ctx, tx, pgTenantID, d.ParentID)
	if err != nil {
		return designation.Designation{}, err
	}
	created, err := scanDesignation(tx.QueryRow(ctx, `
INSERT INTO designations (tenant_id, name, level, parent_designation_id)
VALUES ($1, $2, $3, $4)
RETURNING `+designationColumns,
		pgTenantID, strings.TrimSpace(d.Name), d.Level, parent,
	))
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return designation.Designation{}, mapped
		}
		return designation.Designation{}, fmt.Errorf("create designation: %w", err)
	}
	return created, nil
}

func (r *PgDesignationRepository) Update(ctx context.Context, id string, patch designation.Patch) (designation.Designation, error) {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	key, ok := parseID(id)
	if !ok {
		return designation.Designation{}, designation.ErrNotFound
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return designation.Designation{}, err
	}

	sets := []string{"updated_at = now()"}
	args := []any{pgTenantID, key}
	if patch.Level != nil {
		args = append(args, *patch.Level)
		sets = append(sets, fmt.Sprintf("level = $%d", len(args)))
	}
	if patch.ParentSet {
		parent, err := r.parentArg(ctx, tx, pgTenantID, patch.ParentID)
		if err != nil {
			return designation.Designation{}, err
		}
		args = append(args, parent)
		sets = append(sets, fmt.Sprintf("parent_designation_id = $%d", len(args)))
	}

	updated, err := scanDesignation(tx.QueryRow(ctx, `
UPDATE designations SET `+strings.Join(sets, ", ")+`
WHERE tenant_id = $1 AND id = $2
RETURNING `+designationColumns, args...))
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return designation.Designation{}, mapped
		}
		return designation.Designation{}, fmt.Errorf("update designation %s: %w", id, err)
	}
	return updated, nil
}

func (r *PgDesignationRepository) Delete(ctx context.Context, id string) error {
	_, pgTenantID, err := tenantIDs(ctx)
	if err != nil {
		return err
	}
	key, ok := parseID(id)
	if !ok {
		return designation.ErrNotFound
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM designations WHERE tenant_id = $1 AND id = $2`, pgTenantID, key)
	if err != nil {
		return gerrors.Wrap(err, "delete designation")
	}
	if tag.RowsAffected() == 0 {
		return designation.ErrNotFound
	}
	return nil
}

var _ designation.Repository = (*PgDesignationRepository)(nil)
