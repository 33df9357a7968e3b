package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/graph"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/persistence"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/eventbus"
	"github.com/iota-uz/orghierarchy/pkg/serrors"
)

func tenantCtx() context.Context {
	ctx := composables.WithTenantID(context.Background(), uuid.New())
	return composables.WithRequestID(ctx, "req-42")
}

func TestDesignationService_PublishesEvents(t *testing.T) {
	bus := eventbus.NewEventPublisher(quietLogger().Logger)
	var created []*designation.CreatedEvent
	var updated []*designation.UpdatedEvent
	var deleted []*designation.DeletedEvent
	bus.Subscribe(func(e *designation.CreatedEvent) { created = append(created, e) })
	bus.Subscribe(func(e *designation.UpdatedEvent) { updated = append(updated, e) })
	bus.Subscribe(func(e *designation.DeletedEvent) { deleted = append(deleted, e) })

	svc := services.NewDesignationService(persistence.NewInmemDesignationRepository(), bus, nil)
	ctx := tenantCtx()

	ceo, err := svc.Create(ctx, &designation.CreateDTO{Name: "  CEO ", Level: 0})
	require.NoError(t, err)
	require.Equal(t, "CEO", ceo.Name)
	require.Len(t, created, 1)
	require.Equal(t, "req-42", created[0].RequestID)

	cto, err := svc.CreateDesignation(ctx, "CTO", 1)
	require.NoError(t, err)

	moved, err := svc.UpdateDesignation(ctx, cto.ID, designation.Patch{}.WithParent(&ceo.ID))
	require.NoError(t, err)
	require.Equal(t, ceo.ID, *moved.ParentID)
	require.Len(t, updated, 1)
	require.True(t, updated[0].Patch.ParentSet)

	_, err = svc.Delete(ctx, ceo.ID)
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	orphan, err := svc.GetByID(ctx, cto.ID)
	require.NoError(t, err)
	require.Nil(t, orphan.ParentID)
}

func TestDesignationService_Validation(t *testing.T) {
	svc := services.NewDesignationService(persistence.NewInmemDesignationRepository(), nil, nil)
	ctx := tenantCtx()

	_, err := svc.Create(ctx, &designation.CreateDTO{Name: "   ", Level: 0})
	var verrs serrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "name")

	_, err = svc.Create(ctx, &designation.CreateDTO{Name: "Lead", Level: -1})
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "level")

	_, err = svc.Create(ctx, &designation.CreateDTO{Name: "Lead", Level: 2})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &designation.CreateDTO{Name: "LEAD", Level: 3})
	require.ErrorIs(t, err, designation.ErrNameTaken)

	_, err = svc.Update(ctx, "404", &designation.UpdateDTO{Level: intPtr(1)})
	require.ErrorIs(t, err, designation.ErrNotFound)
}

func TestDesignationService_ReadOnly(t *testing.T) {
	svc := services.NewDesignationService(persistence.NewInmemDesignationRepository(), nil, services.ReadOnly())
	ctx := tenantCtx()

	items, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, items)

	_, err = svc.CreateDesignation(ctx, "CEO", 0)
	require.ErrorIs(t, err, services.ErrForbidden)
	_, err = svc.Delete(ctx, "1")
	require.ErrorIs(t, err, services.ErrForbidden)
}

func TestDesignationService_PublishesAfterCommit(t *testing.T) {
	bus := eventbus.NewEventPublisher(quietLogger().Logger)
	var created []*designation.CreatedEvent
	var updated []*designation.UpdatedEvent
	var reconciled []*services.ReconciledEvent
	bus.Subscribe(func(e *designation.CreatedEvent) { created = append(created, e) })
	bus.Subscribe(func(e *designation.UpdatedEvent) { updated = append(updated, e) })
	bus.Subscribe(func(e *services.ReconciledEvent) { reconciled = append(reconciled, e) })

	svc := services.NewDesignationService(persistence.NewInmemDesignationRepository(), bus, nil)
	r := newReconciler(svc, func(o *services.ReconcilerOptions) {
		o.Notifier = services.NewEventNotifier(bus)
	})
	g := graph.Graph{Nodes: []graph.Node{marker.NewNode("CTO", 1)}}

	t.Run("rolled back", func(t *testing.T) {
		ctx, _ := composables.WithCommitHooks(tenantCtx())
		_, err := r.Reconcile(ctx, g)
		require.NoError(t, err)
		assert.Empty(t, created)
		assert.Empty(t, updated)
		assert.Empty(t, reconciled)
	})

	t.Run("committed", func(t *testing.T) {
		ctx, hooks := composables.WithCommitHooks(tenantCtx())
		_, err := r.Reconcile(ctx, graph.Graph{Nodes: []graph.Node{marker.NewNode("CFO", 1)}})
		require.NoError(t, err)
		assert.Empty(t, created)

		hooks.Run()
		require.Len(t, created, 1)
		assert.Equal(t, "CFO", created[0].Result.Name)
		require.Len(t, updated, 1)
		require.Len(t, reconciled, 1)
	})
}

func intPtr(v int) *int { return &v }
