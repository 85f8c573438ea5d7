package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/pcbmill/internal/board"
	"github.com/piwi3910/pcbmill/internal/model"
)

// pathColor represents an RGB stroke color for a toolpath.
type pathColor struct {
	R, G, B int
}

// pathColors cycles through adjacent toolpaths so neighbouring cuts stay
// distinguishable.
var pathColors = []pathColor{
	{R: 33, G: 150, B: 243}, // blue
	{R: 244, G: 67, B: 54},  // red
	{R: 156, G: 39, B: 176}, // purple
	{R: 255, G: 152, B: 0},  // orange
	{R: 0, G: 188, B: 212},  // cyan
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF writes a report of the composed board: one page per layer with
// its toolpaths drawn to scale, followed by a summary page.
func ExportPDF(path string, b *board.Board) error {
	reports, err := CollectReports(b)
	if err != nil {
		return err
	}
	bounds, err := b.Bounds()
	if err != nil {
		return err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, r := range reports {
		pdf.AddPage()
		renderLayerPage(pdf, r, bounds)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, b, reports, bounds)

	return pdf.OutputFileAndClose(path)
}

// renderLayerPage draws a single layer on the current PDF page.
func renderLayerPage(pdf *fpdf.Fpdf, r LayerReport, bounds model.Bounds) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Layer %s (%s side, %s)", r.Name, r.Side, r.Tool)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Toolpaths: %d | Cut length: %.1f mm | Rapid travel: %.1f mm | Est. time: %.1f min",
		len(r.Toolpaths), r.CutLength*mmPerInch, r.RapidLength*mmPerInch, r.EstimatedTime)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight

	boardW := bounds.Width() * mmPerInch
	boardH := bounds.Height() * mmPerInch
	if boardW <= 0 || boardH <= 0 {
		return
	}
	scale := math.Min(drawWidth/boardW, drawHeight/boardH)

	canvasW := boardW * scale
	canvasH := boardH * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Board substrate
	pdf.SetFillColor(196, 214, 160)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	// Board Y grows upwards, page Y downwards.
	toPage := func(p model.Point2D) (float64, float64) {
		return offsetX + (p.X-bounds.MinX)*mmPerInch*scale,
			offsetY + (bounds.MaxY-p.Y)*mmPerInch*scale
	}

	lineWidth := math.Max(0.1, r.Diameter*mmPerInch*scale)
	pdf.SetLineWidth(math.Min(lineWidth, 1.0))
	for i, path := range r.Toolpaths {
		if len(path) < 2 {
			continue
		}
		col := pathColors[i%len(pathColors)]
		pdf.SetDrawColor(col.R, col.G, col.B)
		for j := 1; j < len(path); j++ {
			x1, y1 := toPage(path[j-1])
			x2, y2 := toPage(path[j])
			pdf.Line(x1, y1, x2, y2)
		}
	}

	// Path starts, in cutting order
	pdf.SetFillColor(30, 30, 30)
	for _, path := range r.Toolpaths {
		if len(path) == 0 {
			continue
		}
		x, y := toPage(path.Start())
		pdf.Circle(x, y, 0.6, "F")
	}

	drawDimensionAnnotations(pdf, bounds, offsetX, offsetY, canvasW, canvasH)
	drawToolLegend(pdf, r, offsetY+canvasH+6)
}

// drawDimensionAnnotations adds width and height labels outside the board rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, bounds model.Bounds, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.2f mm", bounds.Width()*mmPerInch)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%.2f mm", bounds.Height()*mmPerInch)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawToolLegend prints the tool settings of the layer below the drawing.
func drawToolLegend(pdf *fpdf.Fpdf, r LayerReport, startY float64) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(20, 4, "Tool:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	legend := fmt.Sprintf("%s, diameter %.3f mm, depth %.3f mm, feed %.0f mm/min, %d rpm, %d plunges",
		r.Tool, r.Diameter*mmPerInch, r.ZWork*mmPerInch, r.Feed*mmPerInch, r.Speed, r.Plunges)
	pdf.CellFormat(pageWidth-marginLeft-marginRight-20, 4, legend, "", 0, "L", false, 0, "")
}

// renderSummaryPage draws the final summary page with per-layer statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, b *board.Board, reports []LayerReport, bounds model.Bounds) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Milling Job Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Board", "", 0, "L", false, 0, "")
	y += 9

	cfg := b.Config()
	totalTime := 0.0
	for _, r := range reports {
		totalTime += r.EstimatedTime
	}
	summaryItems := []struct {
		label string
		value string
	}{
		{"Job", b.ID},
		{"Size", fmt.Sprintf("%.2f x %.2f mm", bounds.Width()*mmPerInch, bounds.Height()*mmPerInch)},
		{"Surfaces", fmt.Sprintf("%s, %d dpi", cfg.Mode, cfg.DPI)},
		{"Layers", fmt.Sprintf("%d", len(reports))},
		{"Estimated Time", fmt.Sprintf("%.1f min", totalTime)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(80, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Layer Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{30, 25, 30, 35, 25, 45, 45, 32}
	headers := []string{"Layer", "Side", "Tool", "Diameter", "Paths", "Cut Length", "Rapid Travel", "Time"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, r := range reports {
		xPos = marginLeft
		rowData := []string{
			r.Name,
			r.Side.String(),
			r.Tool,
			fmt.Sprintf("%.3f mm", r.Diameter*mmPerInch),
			fmt.Sprintf("%d", len(r.Toolpaths)),
			fmt.Sprintf("%.1f mm", r.CutLength*mmPerInch),
			fmt.Sprintf("%.1f mm", r.RapidLength*mmPerInch),
			fmt.Sprintf("%.1f min", r.EstimatedTime),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by pcbmill - PCB isolation milling", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
