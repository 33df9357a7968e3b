package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
)

func newExportCmd(g *globalOptions) *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the designation hierarchy to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(xlsxPath) == "" {
				return withCode(exitUsage, fmt.Errorf("--xlsx is required"))
			}
			b, err := openBackend(cmd.Context(), g, services.ReadOnly())
			if err != nil {
				return err
			}
			defer b.Close()

			if err := os.MkdirAll(filepath.Dir(xlsxPath), 0o755); err != nil {
				return withCode(exitUsage, fmt.Errorf("mkdir %s: %w", filepath.Dir(xlsxPath), err))
			}
			f, err := os.Create(xlsxPath)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("create %s: %w", xlsxPath, err))
			}
			defer func() { _ = f.Close() }()

			if err := services.NewHierarchyExportService(b.store).WriteXLSX(b.ctx, f); err != nil {
				return withCode(exitStore, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", xlsxPath)
			return err
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Output .xlsx path (required)")
	return cmd
}
