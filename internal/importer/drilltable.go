package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/pcbmill/internal/model"
)

// ImportResult holds the results of a drill table import.
type ImportResult struct {
	Holes    []model.Hole
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	X        int
	Y        int
	Diameter int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"x":        {"x", "pos x", "posx", "x position", "ref x"},
	"y":        {"y", "pos y", "posy", "y position", "ref y"},
	"diameter": {"diameter", "dia", "d", "size", "drill", "hole", "tool"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		// Prefer delimiters with higher consistency and more columns
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping x, y, diameter and false otherwise.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{X: -1, Y: -1, Diameter: -1}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "x":
					if mapping.X == -1 {
						mapping.X = i
					}
				case "y":
					if mapping.Y == -1 {
						mapping.Y = i
					}
				case "diameter":
					if mapping.Diameter == -1 {
						mapping.Diameter = i
					}
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{X: 0, Y: 1, Diameter: 2}, false
	}
	return mapping, true
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow extracts a Hole from a row using the given column mapping.
// Returns the hole and any error message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, scale float64) (model.Hole, string) {
	values := make([]float64, 3)
	for i, col := range []struct {
		name string
		idx  int
	}{{"x", mapping.X}, {"y", mapping.Y}, {"diameter", mapping.Diameter}} {
		s := getCell(row, col.idx)
		if s == "" {
			return model.Hole{}, fmt.Sprintf("%s: Missing %s value", rowLabel, col.name)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Hole{}, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, col.name, s)
		}
		values[i] = v * scale
	}

	if values[2] <= 0 {
		return model.Hole{}, fmt.Sprintf("%s: Diameter must be positive", rowLabel)
	}
	return model.Hole{X: values[0], Y: values[1], Diameter: values[2]}, ""
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports holes from a CSV file, detecting the delimiter and
// mapping columns by header names. scale converts file units to inches.
func ImportCSV(path string, scale float64) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	result = ImportCSVFromReader(bytes.NewReader(data), delimiter, scale)
	result.Warnings = append(warnings, result.Warnings...)
	return result
}

// ImportCSVFromReader imports holes from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune, scale float64) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", scale)
}

// ImportExcel imports holes from the first sheet of an Excel workbook.
func ImportExcel(path string, scale float64) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return importFromRows(rows, "Row", scale)
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, scale float64) ImportResult {
	result := ImportResult{}
	if scale <= 0 {
		scale = 1
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1

		missing := []string{}
		if mapping.X == -1 {
			missing = append(missing, "X")
		}
		if mapping.Y == -1 {
			missing = append(missing, "Y")
		}
		if mapping.Diameter == -1 {
			missing = append(missing, "Diameter")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if _, err := strconv.ParseFloat(getCell(rows[0], 0), 64); err != nil {
		// Unrecognized header, positional mapping still applies
		startRow = 1
		result.Warnings = append(result.Warnings, "Skipped unrecognized header row")
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		hole, errMsg := parseRow(row, mapping, rowLabel, scale)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		result.Holes = append(result.Holes, hole)
	}

	return result
}

// DrillTable serves a list of drill hits. As layer geometry each hole is a
// filled circle.
type DrillTable struct {
	holes []model.Hole
}

// NewDrillTable returns a table over holes.
func NewDrillTable(holes []model.Hole) *DrillTable {
	return &DrillTable{holes: holes}
}

// LoadDrillTable reads a CSV or XLSX hole table, picking the format from the
// file extension. Row errors are reported together.
func LoadDrillTable(path string, scale float64) (*DrillTable, error) {
	var result ImportResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		result = ImportExcel(path, scale)
	default:
		result = ImportCSV(path, scale)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("drill table %s: %s", path, strings.Join(result.Errors, "; "))
	}
	if len(result.Holes) == 0 {
		return nil, fmt.Errorf("%w: drill table %s has no holes", ErrNoGeometry, path)
	}
	return NewDrillTable(result.Holes), nil
}

// Holes returns the drill hits.
func (d *DrillTable) Holes() []model.Hole {
	out := make([]model.Hole, len(d.holes))
	copy(out, d.holes)
	return out
}

// Bounds implements LayerImporter.
func (d *DrillTable) Bounds() (minX, maxX, minY, maxY float64) {
	if len(d.holes) == 0 {
		return 0, 0, 0, 0
	}
	b := model.EmptyBounds()
	for _, h := range d.holes {
		r := h.Diameter / 2
		b = b.Union(model.Bounds{MinX: h.X - r, MaxX: h.X + r, MinY: h.Y - r, MaxY: h.Y + r})
	}
	return b.MinX, b.MaxX, b.MinY, b.MaxY
}

func (d *DrillTable) circles(pointsPerCircle int) model.MultiPolygon {
	polys := make(model.MultiPolygon, 0, len(d.holes))
	for _, h := range d.holes {
		polys = append(polys, model.Polygon{Outer: model.Circle(h.Position(), h.Diameter/2, pointsPerCircle)})
	}
	return polys
}

// Polygons implements VectorImporter.
func (d *DrillTable) Polygons(_ bool, pointsPerCircle int) (model.MultiPolygon, error) {
	return d.circles(pointsPerCircle), nil
}

// Rasterize implements RasterImporter.
func (d *DrillTable) Rasterize(dst *image.Alpha, tr Transform) error {
	RasterizePolygons(dst, tr, d.circles(rasterCircleSegments))
	return nil
}
