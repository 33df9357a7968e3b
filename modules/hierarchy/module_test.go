package hierarchy

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
	"github.com/iota-uz/orghierarchy/pkg/application"
)

func TestModule_Register(t *testing.T) {
	logger, _ := test.NewNullLogger()
	app := application.New(&application.ApplicationOptions{Logger: logger})

	require.NoError(t, application.Load(app, NewModule(nil)))

	require.NotNil(t, app.Service(services.DesignationService{}))
	require.NotNil(t, app.Service(services.Reconciler{}))
	require.NotNil(t, app.Service(services.HierarchyExportService{}))
	require.Len(t, app.Controllers(), 1)
	require.Equal(t, "/hierarchy/api", app.Controllers()[0].Key())
}
