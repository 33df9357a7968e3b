package services

import (
	"context"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
)

// Store is the designation store a reconciliation runs against. It is
// implemented in-process by DesignationService and remotely by the REST client.
type Store interface {
	ListDesignations(ctx context.Context) ([]designation.Designation, error)
	CreateDesignation(ctx context.Context, name string, level int) (designation.Designation, error)
	UpdateDesignation(ctx context.Context, id string, patch designation.Patch) (designation.Designation, error)
}
