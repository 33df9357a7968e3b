package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
)

func newListCmd(g *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the current designation hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), g, services.ReadOnly())
			if err != nil {
				return err
			}
			defer b.Close()

			rows, err := services.NewHierarchyExportService(b.store).Rows(b.ctx)
			if err != nil {
				return withCode(exitStore, err)
			}
			if asJSON {
				return writeJSONLine(cmd.OutOrStdout(), rows)
			}
			return writeTree(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print flattened rows as JSON")
	return cmd
}
