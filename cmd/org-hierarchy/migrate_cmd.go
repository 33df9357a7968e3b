package main

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/persistence"
	"github.com/iota-uz/orghierarchy/pkg/logging"
)

func newMigrateCmd(g *globalOptions) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply designation store schema migrations (--sqlite or --database-url)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			hasSQLite := strings.TrimSpace(g.sqlitePath) != ""
			hasPG := strings.TrimSpace(databaseURL) != ""
			if hasSQLite == hasPG {
				return withCode(exitUsage, fmt.Errorf("exactly one of --sqlite or --database-url is required"))
			}

			if hasSQLite {
				db, err := persistence.OpenSQLite(ctx, g.sqlitePath)
				if err != nil {
					return withCode(exitStore, err)
				}
				_ = db.Close()
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", g.sqlitePath)
				return err
			}

			db, err := sql.Open("pgx", databaseURL)
			if err != nil {
				return withCode(exitStore, fmt.Errorf("open postgres: %w", err))
			}
			defer func() { _ = db.Close() }()
			logger := logging.ConsoleLogger(parseLogLevel(g.logLevel))
			if err := persistence.Migrate(ctx, db, goose.DialectPostgres, logger); err != nil {
				return withCode(exitStoreWrite, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrated postgres")
			return err
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	return cmd
}
