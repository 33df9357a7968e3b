package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/eventbus"
	"github.com/iota-uz/orghierarchy/pkg/serrors"
)

type DesignationService struct {
	repo      designation.Repository
	publisher eventbus.EventBus
	authz     Authorizer
}

func NewDesignationService(repo designation.Repository, publisher eventbus.EventBus, authz Authorizer) *DesignationService {
	if authz == nil {
		authz = AllowAll()
	}
	return &DesignationService{
		repo:      repo,
		publisher: publisher,
		authz:     authz,
	}
}

// inTx runs fn in a transaction when a pool is available and directly otherwise.
func inTx[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	if _, err := composables.UsePool(ctx); err != nil && !composables.HasTx(ctx) {
		return fn(ctx)
	}
	return composables.InTxResult(ctx, fn)
}

// publish emits event once the surrounding transaction commits.
func (s *DesignationService) publish(ctx context.Context, event any) {
	if s.publisher == nil {
		return
	}
	composables.AfterCommit(ctx, func() { s.publisher.Publish(event) })
}

func eventMeta(ctx context.Context) (uuid.UUID, string) {
	tenantID, _ := composables.UseTenantID(ctx)
	return tenantID, composables.UseRequestID(ctx)
}

func (s *DesignationService) GetAll(ctx context.Context) ([]designation.Designation, error) {
	if err := s.authz.Authorize(ctx, PermissionRead); err != nil {
		return nil, err
	}
	return inTx(ctx, func(txCtx context.Context) ([]designation.Designation, error) {
		return s.repo.GetAll(txCtx)
	})
}

func (s *DesignationService) GetByID(ctx context.Context, id string) (designation.Designation, error) {
	if err := s.authz.Authorize(ctx, PermissionRead); err != nil {
		return designation.Designation{}, err
	}
	return inTx(ctx, func(txCtx context.Context) (designation.Designation, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *DesignationService) Create(ctx context.Context, dto *designation.CreateDTO) (designation.Designation, error) {
	if dto == nil {
		return designation.Designation{}, errors.New("missing dto")
	}
	if err := s.authz.Authorize(ctx, PermissionWrite); err != nil {
		return designation.Designation{}, err
	}
	if errs, ok := dto.Ok(); !ok {
		return designation.Designation{}, serrors.ValidationErrors(errs)
	}
	created, err := inTx(ctx, func(txCtx context.Context) (designation.Designation, error) {
		return s.repo.Create(txCtx, dto.ToEntity())
	})
	if err != nil {
		return designation.Designation{}, err
	}
	tenantID, requestID := eventMeta(ctx)
	s.publish(ctx, &designation.CreatedEvent{TenantID: tenantID, RequestID: requestID, Result: created})
	return created, nil
}

func (s *DesignationService) Update(ctx context.Context, id string, dto *designation.UpdateDTO) (designation.Designation, error) {
	if dto == nil {
		return designation.Designation{}, errors.New("missing dto")
	}
	if errs, ok := dto.Ok(); !ok {
		return designation.Designation{}, serrors.ValidationErrors(errs)
	}
	return s.patch(ctx, id, dto.ToPatch())
}

func (s *DesignationService) patch(ctx context.Context, id string, patch designation.Patch) (designation.Designation, error) {
	if err := s.authz.Authorize(ctx, PermissionWrite); err != nil {
		return designation.Designation{}, err
	}
	id = strings.TrimSpace(id)
	updated, err := inTx(ctx, func(txCtx context.Context) (designation.Designation, error) {
		if patch.IsEmpty() {
			return s.repo.GetByID(txCtx, id)
		}
		return s.repo.Update(txCtx, id, patch)
	})
	if err != nil {
		return designation.Designation{}, err
	}
	tenantID, requestID := eventMeta(ctx)
	s.publish(ctx, &designation.UpdatedEvent{TenantID: tenantID, RequestID: requestID, Patch: patch, Result: updated})
	return updated, nil
}

func (s *DesignationService) Delete(ctx context.Context, id string) (designation.Designation, error) {
	if err := s.authz.Authorize(ctx, PermissionWrite); err != nil {
		return designation.Designation{}, err
	}
	deleted, err := inTx(ctx, func(txCtx context.Context) (designation.Designation, error) {
		entity, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return designation.Designation{}, err
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return designation.Designation{}, err
		}
		return entity, nil
	})
	if err != nil {
		return designation.Designation{}, err
	}
	tenantID, requestID := eventMeta(ctx)
	s.publish(ctx, &designation.DeletedEvent{TenantID: tenantID, RequestID: requestID, Result: deleted})
	return deleted, nil
}

func (s *DesignationService) ListDesignations(ctx context.Context) ([]designation.Designation, error) {
	return s.GetAll(ctx)
}

func (s *DesignationService) CreateDesignation(ctx context.Context, name string, level int) (designation.Designation, error) {
	return s.Create(ctx, &designation.CreateDTO{Name: name, Level: level})
}

func (s *DesignationService) UpdateDesignation(ctx context.Context, id string, patch designation.Patch) (designation.Designation, error) {
	return s.patch(ctx, id, patch)
}

var _ Store = (*DesignationService)(nil)
