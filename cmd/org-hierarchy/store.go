package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/client"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/persistence"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/logging"
)

const defaultTenant = "00000000-0000-0000-0000-000000000001"

type backend struct {
	ctx    context.Context
	store  services.Store
	logger *logrus.Logger
	db     *sql.DB
}

func (b *backend) Close() {
	if b.db != nil {
		_ = b.db.Close()
	}
}

func parseLogLevel(v string) logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(v))
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

// openBackend picks the remote REST store or the local SQLite store.
func openBackend(ctx context.Context, g *globalOptions, authz services.Authorizer) (*backend, error) {
	tenantID, err := uuid.Parse(strings.TrimSpace(g.tenant))
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("invalid --tenant: %w", err))
	}
	hasURL := strings.TrimSpace(g.baseURL) != ""
	hasSQLite := strings.TrimSpace(g.sqlitePath) != ""
	switch {
	case hasURL && hasSQLite:
		return nil, withCode(exitUsage, fmt.Errorf("--base-url and --sqlite are mutually exclusive"))
	case !hasURL && !hasSQLite:
		return nil, withCode(exitUsage, fmt.Errorf("one of --base-url or --sqlite is required"))
	}

	logger := logging.ConsoleLogger(parseLogLevel(g.logLevel))
	ctx = composables.WithTenantID(ctx, tenantID)
	ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))

	if hasURL {
		c, err := client.NewDesignationClient(client.Options{
			BaseURL:       g.baseURL,
			Authorization: g.authorization,
			TenantID:      tenantID,
		})
		if err != nil {
			return nil, withCode(exitUsage, err)
		}
		return &backend{ctx: ctx, store: c, logger: logger}, nil
	}

	db, err := persistence.OpenSQLite(ctx, g.sqlitePath)
	if err != nil {
		return nil, withCode(exitStore, err)
	}
	repo := persistence.NewSQLDesignationRepository(db)
	return &backend{
		ctx:    ctx,
		store:  services.NewDesignationService(repo, nil, authz),
		logger: logger,
		db:     db,
	}, nil
}
