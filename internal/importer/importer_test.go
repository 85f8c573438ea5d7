package importer

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"github.com/yofu/dxf"

	"github.com/piwi3910/pcbmill/internal/model"
)

func square(x0, y0, size float64) model.Outline {
	return model.Outline{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
	}
}

// ─── Transform Tests ───────────────────────────────────────

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{MinX: -1, MaxY: 2, DPI: 100, Margin: 10}
	p := model.Point2D{X: 0.5, Y: 0.25}

	px, py := tr.ToPixel(p)
	if px != 160 || py != 185 {
		t.Errorf("expected pixel (160,185), got (%v,%v)", px, py)
	}

	back := tr.ToBoard(px, py)
	if math.Abs(back.X-p.X) > 1e-12 || math.Abs(back.Y-p.Y) > 1e-12 {
		t.Errorf("round trip mismatch: %+v vs %+v", back, p)
	}
}

// ─── Rasterization Tests ───────────────────────────────────

func TestRasterizePolygonsWithHole(t *testing.T) {
	img := image.NewAlpha(image.Rect(0, 0, 100, 100))
	tr := Transform{MinX: 0, MaxY: 1, DPI: 100}

	polys := model.MultiPolygon{{
		Outer: square(0.2, 0.2, 0.6),
		Holes: []model.Outline{square(0.4, 0.4, 0.2)},
	}}
	RasterizePolygons(img, tr, polys)

	if img.AlphaAt(30, 30).A != 0xff {
		t.Error("expected copper inside the outer ring")
	}
	if img.AlphaAt(50, 50).A != 0 {
		t.Error("expected the hole to stay clear")
	}
	if img.AlphaAt(10, 10).A != 0 {
		t.Error("expected no copper outside the polygon")
	}
	for _, a := range img.Pix {
		if a != 0 && a != 0xff {
			t.Fatalf("expected thresholded pixels, found %d", a)
		}
	}
}

// ─── PolygonImporter Tests ─────────────────────────────────

func TestPolygonImporter(t *testing.T) {
	polys := model.MultiPolygon{{
		Outer: square(1, 2, 3),
		Holes: []model.Outline{square(2, 3, 1)},
	}}
	imp := NewPolygonImporter(polys)

	minX, maxX, minY, maxY := imp.Bounds()
	if minX != 1 || maxX != 4 || minY != 2 || maxY != 5 {
		t.Errorf("unexpected bounds %v %v %v %v", minX, maxX, minY, maxY)
	}

	got, err := imp.Polygons(false, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got[0].Holes) != 1 {
		t.Error("expected the hole to be kept without fill")
	}

	filled, _ := imp.Polygons(true, 30)
	if len(filled[0].Holes) != 0 {
		t.Error("expected fill to drop holes")
	}

	var _ VectorImporter = imp
	var _ RasterImporter = imp
}

func TestPolygonImporterEmptyBounds(t *testing.T) {
	minX, maxX, minY, maxY := NewPolygonImporter(nil).Bounds()
	if minX != 0 || maxX != 0 || minY != 0 || maxY != 0 {
		t.Error("expected zero bounds for an empty importer")
	}
}

// ─── DXF Tests ─────────────────────────────────────────────

func TestBulgeArcPointsSemicircle(t *testing.T) {
	pts := bulgeArcPoints(model.Point2D{X: 0, Y: 0}, model.Point2D{X: 2, Y: 0}, 1, 32)
	if len(pts) != 33 {
		t.Fatalf("expected 33 points, got %d", len(pts))
	}
	mid := pts[16]
	if math.Abs(mid.X-1) > 1e-9 || math.Abs(mid.Y+1) > 1e-9 {
		t.Errorf("expected counter-clockwise arc through (1,-1), got %+v", mid)
	}
}

func TestChainSegmentsClosesSquare(t *testing.T) {
	segs := []segment{
		{start: model.Point2D{X: 0, Y: 0}, end: model.Point2D{X: 1, Y: 0}},
		{start: model.Point2D{X: 1, Y: 1}, end: model.Point2D{X: 1, Y: 0}}, // reversed
		{start: model.Point2D{X: 1, Y: 1}, end: model.Point2D{X: 0, Y: 1}},
		{start: model.Point2D{X: 0, Y: 1}, end: model.Point2D{X: 0, Y: 0}},
		{start: model.Point2D{X: 5, Y: 5}, end: model.Point2D{X: 6, Y: 5}},
	}

	outlines, open := chainSegments(segs, 0.001)
	if len(outlines) != 1 {
		t.Fatalf("expected 1 closed outline, got %d", len(outlines))
	}
	if len(outlines[0]) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(outlines[0]))
	}
	if open != 1 {
		t.Errorf("expected 1 open chain, got %d", open)
	}
}

func writeTestDXF(t *testing.T) string {
	t.Helper()
	d := dxf.NewDrawing()
	// 40 x 30 board outline from lines, one mounting hole
	d.Line(0, 0, 0, 40, 0, 0)
	d.Line(40, 0, 0, 40, 30, 0)
	d.Line(40, 30, 0, 0, 30, 0)
	d.Line(0, 30, 0, 0, 0, 0)
	d.Circle(10, 10, 0, 2)

	path := filepath.Join(t.TempDir(), "outline.dxf")
	if err := d.SaveAs(path); err != nil {
		t.Fatalf("failed to save DXF: %v", err)
	}
	return path
}

func TestLoadDXF(t *testing.T) {
	path := writeTestDXF(t)

	imp, err := LoadDXF(path, 1/25.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	minX, maxX, minY, maxY := imp.Bounds()
	if math.Abs(minX) > 1e-9 || math.Abs(maxX-40/25.4) > 1e-9 ||
		math.Abs(minY) > 1e-9 || math.Abs(maxY-30/25.4) > 1e-9 {
		t.Errorf("unexpected bounds %v %v %v %v", minX, maxX, minY, maxY)
	}

	polys, err := imp.Polygons(false, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(polys) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(polys))
	}
	if len(polys[0].Holes) != 1 || len(polys[0].Holes[0]) != 24 {
		t.Errorf("expected the circle as a 24-point hole, got %+v", polys[0].Holes)
	}

	filled, _ := imp.Polygons(true, 24)
	if len(filled[0].Holes) != 0 {
		t.Error("expected fill to drop the mounting hole")
	}
}

func TestLoadDXF_FileNotFound(t *testing.T) {
	if _, err := LoadDXF("/nonexistent/board.dxf", 1); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestFromEntities_Empty(t *testing.T) {
	_, err := fromEntities(nil, 1, "empty.dxf")
	if !errors.Is(err, ErrNoGeometry) {
		t.Errorf("expected ErrNoGeometry, got %v", err)
	}
}

// ─── Drill Table Tests ─────────────────────────────────────

func TestDetectCSVDelimiter(t *testing.T) {
	tests := []struct {
		data string
		want rune
	}{
		{"X,Y,Diameter\n1,2,0.8\n3,4,1.0\n", ','},
		{"X;Y;Diameter\n1;2;0.8\n3;4;1.0\n", ';'},
		{"X\tY\tDiameter\n1\t2\t0.8\n3\t4\t1.0\n", '\t'},
		{"X|Y|Diameter\n1|2|0.8\n3|4|1.0\n", '|'},
	}
	for _, tt := range tests {
		if got := DetectCSVDelimiter([]byte(tt.data)); got != tt.want {
			t.Errorf("DetectCSVDelimiter(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestDetectColumns(t *testing.T) {
	mapping, isHeader := DetectColumns([]string{"Dia", "Pos X", "Pos Y"})
	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if mapping.Diameter != 0 || mapping.X != 1 || mapping.Y != 2 {
		t.Errorf("unexpected mapping %+v", mapping)
	}

	mapping, isHeader = DetectColumns([]string{"1.0", "2.0", "0.8"})
	if isHeader {
		t.Error("numeric row should not be a header")
	}
	if mapping.X != 0 || mapping.Y != 1 || mapping.Diameter != 2 {
		t.Errorf("unexpected positional mapping %+v", mapping)
	}
}

func TestImportCSVFromReader(t *testing.T) {
	data := "X,Y,Diameter\n1,2,0.8\n\n3,4,1.0\n5,abc,1.0\n7,8,-1\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',', 1)

	if len(result.Holes) != 2 {
		t.Fatalf("expected 2 holes, got %d", len(result.Holes))
	}
	if result.Holes[1] != (model.Hole{X: 3, Y: 4, Diameter: 1.0}) {
		t.Errorf("unexpected hole %+v", result.Holes[1])
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 row errors, got %v", result.Errors)
	}
}

func TestImportCSVFromReader_MissingColumn(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("X,Y\n1,2\n"), ',', 1)
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "Diameter") {
		t.Errorf("expected missing Diameter error, got %v", result.Errors)
	}
}

func TestImportCSV_ScaleAndDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holes.csv")
	if err := os.WriteFile(path, []byte("x;y;d\n25.4;50.8;1.27\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	result := ImportCSV(path, 1/25.4)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	h := result.Holes[0]
	if math.Abs(h.X-1) > 1e-9 || math.Abs(h.Y-2) > 1e-9 || math.Abs(h.Diameter-0.05) > 1e-9 {
		t.Errorf("unexpected scaled hole %+v", h)
	}

	hasSemicolonWarning := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "semicolon") {
			hasSemicolonWarning = true
		}
	}
	if !hasSemicolonWarning {
		t.Error("expected warning about semicolon delimiter detection")
	}
}

func createTestExcel(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "holes.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, row := range rows {
		for j, cell := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to create cell reference: %v", err)
			}
			if err := f.SetCellValue(sheet, cellRef, cell); err != nil {
				t.Fatalf("failed to set cell value: %v", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save Excel file: %v", err)
	}
	return path
}

func TestLoadDrillTable_Excel(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"X", "Y", "Diameter"},
		{0.5, 0.5, 0.04},
		{1.5, 0.25, 0.1},
	})

	table, err := LoadDrillTable(path, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	holes := table.Holes()
	if len(holes) != 2 {
		t.Fatalf("expected 2 holes, got %d", len(holes))
	}

	minX, maxX, minY, maxY := table.Bounds()
	if math.Abs(minX-0.48) > 1e-9 || math.Abs(maxX-1.55) > 1e-9 ||
		math.Abs(minY-0.2) > 1e-9 || math.Abs(maxY-0.52) > 1e-9 {
		t.Errorf("unexpected bounds %v %v %v %v", minX, maxX, minY, maxY)
	}

	polys, _ := table.Polygons(false, 16)
	if len(polys) != 2 || len(polys[0].Outer) != 16 {
		t.Errorf("expected 2 circles of 16 points, got %d", len(polys))
	}
}

func TestLoadDrillTable_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("X,Y,Diameter\n1,2,zero\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := LoadDrillTable(path, 1); err == nil {
		t.Error("expected error for invalid row")
	}

	empty := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(empty, []byte("X,Y,Diameter\n"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := LoadDrillTable(empty, 1); !errors.Is(err, ErrNoGeometry) {
		t.Errorf("expected ErrNoGeometry, got %v", err)
	}
}
