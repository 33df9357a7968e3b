package designation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/orghierarchy/pkg/serrors"
)

var (
	ErrNotFound       = serrors.NewError("DESIGNATION_NOT_FOUND", "designation not found", "Designations.Errors.NotFound")
	ErrNameTaken      = serrors.NewError("DESIGNATION_NAME_TAKEN", "designation name already exists", "Designations.Errors.NameTaken")
	ErrParentNotFound = serrors.NewError("DESIGNATION_PARENT_NOT_FOUND", "parent designation not found", "Designations.Errors.ParentNotFound")
)

// Designation is an organizational rank with a level and an optional parent.
type Designation struct {
	ID        string    `json:"id"`
	TenantID  uuid.UUID `json:"-"`
	Name      string    `json:"name"`
	Level     int       `json:"level"`
	ParentID  *string   `json:"parent_designation_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d Designation) IsRoot() bool {
	return d.ParentID == nil
}

// Patch holds a partial update. ParentSet distinguishes an explicit null parent
// from an untouched one.
type Patch struct {
	Level     *int
	ParentSet bool
	ParentID  *string
}

func (p Patch) IsEmpty() bool {
	return p.Level == nil && !p.ParentSet
}

func (p Patch) WithLevel(level int) Patch {
	p.Level = &level
	return p
}

func (p Patch) WithParent(parentID *string) Patch {
	p.ParentSet = true
	if parentID != nil {
		v := *parentID
		p.ParentID = &v
	} else {
		p.ParentID = nil
	}
	return p
}

// Apply returns a copy of d with the patch applied.
func (p Patch) Apply(d Designation) Designation {
	if p.Level != nil {
		d.Level = *p.Level
	}
	if p.ParentSet {
		if p.ParentID == nil {
			d.ParentID = nil
		} else {
			v := *p.ParentID
			d.ParentID = &v
		}
	}
	return d
}

// NameKey is the lookup key used for case-insensitive name matching.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type Repository interface {
	GetAll(ctx context.Context) ([]Designation, error)
	GetByID(ctx context.Context, id string) (Designation, error)
	Create(ctx context.Context, d Designation) (Designation, error)
	Update(ctx context.Context, id string, patch Patch) (Designation, error)
	Delete(ctx context.Context, id string) error
}
