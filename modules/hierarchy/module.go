package hierarchy

import (
	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/persistence"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/presentation/controllers"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
	"github.com/iota-uz/orghierarchy/pkg/application"
	"github.com/iota-uz/orghierarchy/pkg/configuration"
)

type ModuleOptions struct {
	Hierarchy configuration.HierarchyOptions
	// Repository overrides the store picked from the application pool.
	Repository designation.Repository
	Authorizer services.Authorizer
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	repo := m.options.Repository
	if repo == nil {
		if app.DB() != nil {
			repo = persistence.NewPgDesignationRepository()
		} else {
			repo = persistence.NewInmemDesignationRepository()
		}
	}

	designationService := services.NewDesignationService(repo, app.EventPublisher(), m.options.Authorizer)

	reconcilerOpts := services.ReconcilerOptionsFromConfig(m.options.Hierarchy)
	reconcilerOpts.Authorizer = m.options.Authorizer
	reconcilerOpts.Notifier = services.Notifiers{
		services.NewLogNotifier(nil),
		services.NewEventNotifier(app.EventPublisher()),
	}

	app.RegisterServices(
		designationService,
		services.NewReconciler(designationService, reconcilerOpts),
		services.NewHierarchyExportService(designationService),
	)

	app.RegisterControllers(
		controllers.NewDesignationAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "hierarchy"
}
