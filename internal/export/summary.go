package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/pcbmill/internal/board"
)

const (
	layersSheet = "Layers"
	boardSheet  = "Board"
)

var summaryHeader = []interface{}{
	"Layer", "Side", "Tool", "Diameter (mm)", "Depth (mm)", "Feed (mm/min)", "Speed (rpm)",
	"Toolpaths", "Points", "Plunges", "Cut Length (mm)", "Rapid Travel (mm)", "Time (min)",
}

// ExportSummary writes an XLSX workbook with one row of statistics per layer
// and a sheet describing the board.
func ExportSummary(path string, b *board.Board) error {
	reports, err := CollectReports(b)
	if err != nil {
		return err
	}
	bounds, err := b.Bounds()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", layersSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(layersSheet, "A1", &summaryHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(summaryHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(layersSheet, "A1", last, bold); err != nil {
		return err
	}

	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.Name, r.Side.String(), r.Tool,
			r.Diameter * mmPerInch, r.ZWork * mmPerInch, r.Feed * mmPerInch, r.Speed,
			len(r.Toolpaths), r.Points, r.Plunges,
			r.CutLength * mmPerInch, r.RapidLength * mmPerInch, r.EstimatedTime,
		}
		if err := f.SetSheetRow(layersSheet, cell, &row); err != nil {
			return fmt.Errorf("layer %q: %w", r.Name, err)
		}
	}

	if _, err := f.NewSheet(boardSheet); err != nil {
		return err
	}
	cfg := b.Config()
	rows := [][]interface{}{
		{"Job", b.ID},
		{"Mode", cfg.Mode.String()},
		{"DPI", cfg.DPI},
		{"Width (mm)", bounds.Width() * mmPerInch},
		{"Height (mm)", bounds.Height() * mmPerInch},
		{"Layers", len(reports)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(boardSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
