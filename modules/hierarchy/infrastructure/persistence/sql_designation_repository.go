package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/pkg/composables"
)

const sqlDesignationColumns = `id, tenant_id, name, level, parent_designation_id, created_at, updated_at`

// SQLDesignationRepository stores designations through database/sql. It backs
// the local SQLite store used by the CLI.
type SQLDesignationRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLDesignationRepository(db *sql.DB) *SQLDesignationRepository {
	return &SQLDesignationRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// OpenSQLite opens the database at path and applies the sqlite migrations.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := Migrate(ctx, db, goose.DialectSQLite3, nil); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLDesignation(row sqlScanner) (designation.Designation, error) {
	var (
		id        int64
		tenantID  string
		name      string
		level     int
		parentID  sql.NullInt64
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&id, &tenantID, &name, &level, &parentID, &createdAt, &updatedAt); err != nil {
		return designation.Designation{}, err
	}
	d := designation.Designation{
		ID:    strconv.FormatInt(id, 10),
		Name:  name,
		Level: level,
	}
	if tid, err := uuid.Parse(tenantID); err == nil {
		d.TenantID = tid
	}
	if parentID.Valid {
		v := strconv.FormatInt(parentID.Int64, 10)
		d.ParentID = &v
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return d, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLDesignationRepository) tenant(ctx context.Context) (string, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get tenant from context: %w", err)
	}
	return tenantID.String(), nil
}

func (r *SQLDesignationRepository) GetAll(ctx context.Context) ([]designation.Designation, error) {
	tenantID, err := r.tenant(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+sqlDesignationColumns+` FROM designations WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, gerrors.Wrap(err, "query designations")
	}
	defer func() { _ = rows.Close() }()

	out := []designation.Designation{}
	for rows.Next() {
		d, err := scanSQLDesignation(rows)
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

func (r *SQLDesignationRepository) GetByID(ctx context.Context, id string) (designation.Designation, error) {
	tenantID, err := r.tenant(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	key, ok := parseID(id)
	if !ok {
		return designation.Designation{}, designation.ErrNotFound
	}
	d, err := scanSQLDesignation(r.db.QueryRowContext(ctx, `SELECT `+sqlDesignationColumns+` FROM designations WHERE tenant_id = ? AND id = ?`, tenantID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return designation.Designation{}, designation.ErrNotFound
	}
	if err != nil {
		return designation.Designation{}, gerrors.Wrap(err, "get designation")
	}
	return d, nil
}

func (r *SQLDesignationRepository) parentArg(ctx context.Context, tenantID string, parentID *string) (sql.NullInt64, error) {
	if parentID == nil {
		return sql.NullInt64{}, nil
	}
	key, ok := parseID(*parentID)
	if !ok {
		return sql.NullInt64{}, designation.ErrParentNotFound
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM designations WHERE tenant_id = ? AND id = ?`, tenantID, key).Scan(&n); err != nil {
		return sql.NullInt64{}, gerrors.Wrap(err, "check parent")
	}
	if n == 0 {
		return sql.NullInt64{}, designation.ErrParentNotFound
	}
	return sql.NullInt64{Int64: key, Valid: true}, nil
}

func (r *SQLDesignationRepository) Create(ctx context.Context, d designation.Designation) (designation.Designation, error) {
	tenantID, err := r.tenant(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	parent, err := r.parentArg(ctx, tenantID, d.ParentID)
	if err != nil {
		return designation.Designation{}, err
	}
	now := r.now().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, `
INSERT INTO designations (tenant_id, name, level, parent_designation_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		tenantID, strings.TrimSpace(d.Name), d.Level, parent, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return designation.Designation{}, designation.ErrNameTaken
		}
		return designation.Designation{}, fmt.Errorf("create designation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return designation.Designation{}, gerrors.Wrap(err, "last insert id")
	}
	return r.GetByID(ctx, strconv.FormatInt(id, 10))
}

func (r *SQLDesignationRepository) Update(ctx context.Context, id string, patch designation.Patch) (designation.Designation, error) {
	tenantID, err := r.tenant(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	key, ok := parseID(id)
	if !ok {
		return designation.Designation{}, designation.ErrNotFound
	}

	sets := []string{"updated_at = ?"}
	args := []any{r.now().Format(time.RFC3339Nano)}
	if patch.Level != nil {
		sets = append(sets, "level = ?")
		args = append(args, *patch.Level)
	}
	if patch.ParentSet {
		parent, err := r.parentArg(ctx, tenantID, patch.ParentID)
		if err != nil {
			return designation.Designation{}, err
		}
		sets = append(sets, "parent_designation_id = ?")
		args = append(args, parent)
	}
	args = append(args, tenantID, key)

	res, err := r.db.ExecContext(ctx, `UPDATE designations SET `+strings.Join(sets, ", ")+` WHERE tenant_id = ? AND id = ?`, args...)
	if err != nil {
		return designation.Designation{}, fmt.Errorf("update designation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return designation.Designation{}, gerrors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return designation.Designation{}, designation.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *SQLDesignationRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := r.tenant(ctx)
	if err != nil {
		return err
	}
	key, ok := parseID(id)
	if !ok {
		return designation.ErrNotFound
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE designations SET parent_designation_id = NULL WHERE tenant_id = ? AND parent_designation_id = ?`, tenantID, key); err != nil {
		return gerrors.Wrap(err, "detach children")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM designations WHERE tenant_id = ? AND id = ?`, tenantID, key)
	if err != nil {
		return gerrors.Wrap(err, "delete designation")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return gerrors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return designation.ErrNotFound
	}
	return nil
}

var _ designation.Repository = (*SQLDesignationRepository)(nil)
