package designation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/orghierarchy/pkg/constants"
	"github.com/iota-uz/orghierarchy/pkg/serrors"
)

type CreateDTO struct {
	Name  string `json:"name" validate:"required,max=255"`
	Level int    `json:"level" validate:"gte=0"`
}

func (d *CreateDTO) Ok() (map[string]string, bool) {
	d.Name = strings.TrimSpace(d.Name)
	return validate(d)
}

func (d *CreateDTO) ToEntity() Designation {
	return Designation{
		Name:  d.Name,
		Level: d.Level,
	}
}

type UpdateDTO struct {
	Level     *int    `json:"level" validate:"omitempty,gte=0"`
	ParentSet bool    `json:"-"`
	ParentID  *string `json:"parent_designation_id" validate:"omitempty,min=1"`
}

func (d *UpdateDTO) Ok() (map[string]string, bool) {
	return validate(d)
}

func (d *UpdateDTO) ToPatch() Patch {
	p := Patch{Level: d.Level}
	if d.ParentSet {
		p = p.WithParent(d.ParentID)
	}
	return p
}

func validate(v any) (map[string]string, bool) {
	err := constants.Validate.Struct(v)
	if err == nil {
		return map[string]string{}, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}, false
	}
	return serrors.ProcessValidatorErrors(verrs, jsonFieldName), false
}

func jsonFieldName(field string) string {
	switch field {
	case "Name":
		return "name"
	case "Level":
		return "level"
	case "ParentID":
		return "parent_designation_id"
	default:
		return strings.ToLower(field)
	}
}
