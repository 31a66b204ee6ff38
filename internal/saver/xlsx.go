package saver

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the XLSX exporter fills.
const SheetName = "Prediction"

// XLSXExporter writes rows to a single-sheet Excel workbook.
type XLSXExporter struct{}

func (XLSXExporter) Extension() string { return "xlsx" }

func (XLSXExporter) Save(rows []Row, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &[]interface{}{"date", "actual", "predicted"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]interface{}{r.Date, r.Actual, r.Predicted}); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f.SaveAs(path)
}
