// Package report exports filtered snapshot views as xlsx workbooks for
// the maintenance-window spreadsheets operators pass around.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vmops/snapfleet/internal/filter"
)

const sheetName = "Snapshots"

var headers = []string{
	"Hostname",
	"VM",
	"Snapshot",
	"Description",
	"Created By",
	"Created At",
	"Age (business days)",
	"Age (calendar days)",
	"Kind",
	"Chain Protected",
	"Memory",
}

// WriteWorkbook writes one sheet with a header row and one row per
// snapshot view, preserving the views' order.
func WriteWorkbook(w io.Writer, views []filter.SnapshotView) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	for i, view := range views {
		values := []any{
			view.Hostname,
			view.VMName,
			view.Snapshot.Name,
			view.Snapshot.Description,
			view.Snapshot.CreatedBy,
			view.Snapshot.CreatedAt.Format("2006-01-02 15:04"),
			view.AgeBusinessDays,
			view.AgeCalendarDays,
			string(view.Kind),
			view.ChainProtected,
			view.Snapshot.Memory,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
