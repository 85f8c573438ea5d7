// Package export writes reports of a composed board: a PDF with the toolpaths
// of every layer, QR-coded setup labels and an XLSX job summary.
package export

import (
	"errors"
	"fmt"

	"github.com/piwi3910/pcbmill/internal/board"
	"github.com/piwi3910/pcbmill/internal/gcode"
	"github.com/piwi3910/pcbmill/internal/model"
)

const mmPerInch = 25.4

// ErrEmptyBoard is returned when a board has no composed layers to report.
var ErrEmptyBoard = errors.New("no composed layers to export")

// LayerReport summarizes the machining of one layer. Lengths are in inches,
// times in minutes.
type LayerReport struct {
	Name          string
	Side          model.Side
	Tool          string
	Diameter      float64
	ZWork         float64
	Feed          float64
	Speed         int
	Toolpaths     []model.Toolpath
	Points        int
	Plunges       int
	CutLength     float64
	RapidLength   float64
	EstimatedTime float64
}

// statsProfile emits inches so program statistics stay in board units.
func statsProfile() model.GCodeProfile {
	return model.GetProfile("LinuxCNC")
}

// CollectReports gathers one report per composed layer, in layer order.
// Travel figures come from parsing the program the layer would produce.
func CollectReports(b *board.Board) ([]LayerReport, error) {
	names := b.Layers()
	if len(names) == 0 {
		return nil, ErrEmptyBoard
	}

	gen := gcode.New(statsProfile(), gcode.Options{})
	reports := make([]LayerReport, 0, len(names))
	for _, name := range names {
		l, err := b.Layer(name)
		if err != nil {
			return nil, err
		}
		paths, err := l.Toolpaths()
		if err != nil {
			return nil, fmt.Errorf("toolpaths for layer %q: %w", name, err)
		}
		program, err := gen.GenerateLayer(l, b.ID)
		if err != nil {
			return nil, err
		}
		stats := gcode.ComputeStats(gcode.ParseGCode(program))

		m := l.Tool.Base()
		r := LayerReport{
			Name:          name,
			Side:          l.Side,
			Tool:          toolKind(l.Tool),
			Diameter:      model.Diameter(l.Tool),
			ZWork:         m.ZWork,
			Feed:          m.Feed,
			Speed:         m.Speed,
			Toolpaths:     paths,
			Plunges:       stats.Plunges,
			CutLength:     stats.CutLength,
			RapidLength:   stats.RapidLength,
			EstimatedTime: stats.EstimatedTime,
		}
		for _, p := range paths {
			r.Points += len(p)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func toolKind(t model.Tool) string {
	switch t.(type) {
	case *model.Isolator:
		return "isolator"
	case *model.Cutter:
		return "cutter"
	case *model.Driller:
		return "driller"
	case *model.RoutingMill:
		return "end mill"
	default:
		return "mill"
	}
}
