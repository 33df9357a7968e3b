package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

func writeTree(w io.Writer, rows []services.FlatRow) error {
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s%s (level %d, id %s)\n",
			strings.Repeat("  ", row.Depth), row.Designation.Name, row.Designation.Level, row.Designation.ID); err != nil {
			return err
		}
	}
	return nil
}
