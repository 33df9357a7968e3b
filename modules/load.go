package modules

import (
	"github.com/iota-uz/orghierarchy/modules/hierarchy"
	"github.com/iota-uz/orghierarchy/pkg/application"
	"github.com/iota-uz/orghierarchy/pkg/configuration"
)

// BuiltInModules returns the modules served by cmd/server.
func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		hierarchy.NewModule(&hierarchy.ModuleOptions{
			Hierarchy: conf.Hierarchy,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.Load(app, externalModules...)
}
