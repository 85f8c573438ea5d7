package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/pcbmill/internal/board"
)

// LabelInfo holds the setup data encoded into each layer label's QR code.
// Lengths are millimetres so the operator can key them into the machine.
type LabelInfo struct {
	Job        string  `json:"job"`
	Layer      string  `json:"layer"`
	Side       string  `json:"side"`
	Tool       string  `json:"tool"`
	DiameterMM float64 `json:"diameter_mm"`
	DepthMM    float64 `json:"depth_mm"`
	FeedMM     float64 `json:"feed_mm_min"`
	Speed      int     `json:"rpm"`
	Toolpaths  int     `json:"toolpaths"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels writes a PDF of QR-coded setup labels, one per composed layer.
// Each label shows the layer, side and tool, and its QR code carries the
// same data as JSON.
func ExportLabels(path string, b *board.Board) error {
	labels, err := CollectLabelInfos(b)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.Layer, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// CollectLabelInfos extracts the label data of every composed layer.
func CollectLabelInfos(b *board.Board) ([]LabelInfo, error) {
	reports, err := CollectReports(b)
	if err != nil {
		return nil, err
	}
	labels := make([]LabelInfo, 0, len(reports))
	for _, r := range reports {
		labels = append(labels, LabelInfo{
			Job:        b.ID,
			Layer:      r.Name,
			Side:       r.Side.String(),
			Tool:       r.Tool,
			DiameterMM: r.Diameter * mmPerInch,
			DepthMM:    r.ZWork * mmPerInch,
			FeedMM:     r.Feed * mmPerInch,
			Speed:      r.Speed,
			Toolpaths:  len(r.Toolpaths),
		})
	}
	return labels, nil
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%s_%s", info.Job, info.Layer)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	title := fmt.Sprintf("%s (%s)", info.Layer, info.Side)
	if pdf.GetStringWidth(title) > textW {
		for len(title) > 0 && pdf.GetStringWidth(title+"...") > textW {
			title = title[:len(title)-1]
		}
		title += "..."
	}
	pdf.CellFormat(textW, 4.5, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	tool := fmt.Sprintf("%s %.2f mm, Z %.3f", info.Tool, info.DiameterMM, info.DepthMM)
	pdf.CellFormat(textW, 3.5, tool, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	feed := fmt.Sprintf("F%.0f S%d, %d paths", info.FeedMM, info.Speed, info.Toolpaths)
	pdf.CellFormat(textW, 3, feed, "", 1, "L", false, 0, "")

	pdf.SetXY(textX, y+labelPadding+12.5)
	pdf.CellFormat(textW, 3, "Job "+info.Job, "", 0, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)

	return nil
}
