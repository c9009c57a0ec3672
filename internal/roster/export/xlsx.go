// Package export writes the normalized roster to a standalone workbook.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"regdesk/internal/roster/models"
)

// SheetName is the worksheet holding the exported roster.
const SheetName = "Roster"

// idColumn precedes the table columns so exported rows can be confirmed later.
const idColumn = "ID"

// WriteXLSX saves table to path as a single worksheet with a bold, filterable
// header row.
func WriteXLSX(table *models.Table, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := append([]any{idColumn}, toCells(table.Columns)...)
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range table.Records {
		rec := &table.Records[i]
		row := append([]any{rec.ID}, toCells(rec.Values(table.Columns))...)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(header), len(table.Records)+1)
	if err != nil {
		return err
	}
	if err := f.AutoFilter(SheetName, "A1:"+end, nil); err != nil {
		return fmt.Errorf("add filter: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
