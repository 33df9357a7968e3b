package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	gerrors "github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Hierarchy"

type HierarchyExportService struct {
	store Store
}

func NewHierarchyExportService(store Store) *HierarchyExportService {
	return &HierarchyExportService{store: store}
}

func (s *HierarchyExportService) Rows(ctx context.Context) ([]FlatRow, error) {
	items, err := s.store.ListDesignations(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "list designations")
	}
	return Flatten(BuildTree(items)), nil
}

// WriteXLSX writes the flattened hierarchy as a single-sheet workbook.
func (s *HierarchyExportService) WriteXLSX(ctx context.Context, w io.Writer) error {
	rows, err := s.Rows(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return gerrors.Wrap(err, "rename sheet")
	}

	header := []any{"ID", "Name", "Level", "Parent ID", "Parent", "Depth", "Path"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return gerrors.Wrap(err, "write header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return gerrors.Wrap(err, "header style")
	}
	if err := f.SetCellStyle(exportSheet, "A1", "G1", bold); err != nil {
		return gerrors.Wrap(err, "apply header style")
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		parentID := ""
		if row.Designation.ParentID != nil {
			parentID = *row.Designation.ParentID
		}
		values := []any{
			row.Designation.ID,
			strings.Repeat("  ", row.Depth) + row.Designation.Name,
			row.Designation.Level,
			parentID,
			row.ParentName,
			row.Depth,
			row.Path,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return gerrors.Wrap(err, fmt.Sprintf("write row %d", i+2))
		}
	}
	if err := f.SetColWidth(exportSheet, "B", "B", 40); err != nil {
		return gerrors.Wrap(err, "set column width")
	}
	if err := f.SetColWidth(exportSheet, "G", "G", 60); err != nil {
		return gerrors.Wrap(err, "set column width")
	}

	if err := f.Write(w); err != nil {
		return gerrors.Wrap(err, "write workbook")
	}
	return nil
}
