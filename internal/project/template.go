package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/piwi3910/pcbmill/internal/model"
)

// WriteTemplate writes a starter project in millimetres to path, filled with
// the default tools of every layer. It refuses to overwrite an existing file.
func WriteTemplate(path, name string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	s := model.DefaultSettings()
	fill, twoOpt := s.FillOutline, s.TSP2Opt
	pf := projectFile{
		Name:    name,
		Units:   "mm",
		Profile: s.GCodeProfile,
		Board: boardSection{
			Mode:            "raster",
			DPI:             s.DPI,
			FillOutline:     &fill,
			OutlineWidth:    round(s.OutlineWidth * mmPerInch),
			PointsPerCircle: s.PointsPerCircle,
			TSP2Opt:         &twoOpt,
			OutputDir:       "gcode",
		},
		Front:   isolatorSection("front.dxf", model.DefaultIsolator()),
		Back:    &layerSection{File: "back.dxf"},
		Outline: cutterSection("outline.dxf", model.DefaultCutter()),
		Drill:   millSection("drill.csv", &model.DefaultDriller().Mill),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(pf); err != nil {
		f.Close()
		return fmt.Errorf("write template %s: %w", path, err)
	}
	return f.Close()
}

// round trims conversion noise to micrometres.
func round(mm float64) float64 {
	return float64(int64(mm*1000+0.5*sign(mm))) / 1000
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func millSection(file string, m *model.Mill) *layerSection {
	return &layerSection{
		File:     file,
		Feed:     round(m.Feed * mmPerInch),
		VertFeed: round(m.VertFeed * mmPerInch),
		Speed:    m.Speed,
		ZChange:  round(m.ZChange * mmPerInch),
		ZSafe:    round(m.ZSafe * mmPerInch),
		ZWork:    round(m.ZWork * mmPerInch),
	}
}

func isolatorSection(file string, iso *model.Isolator) *layerSection {
	s := millSection(file, &iso.Mill)
	optimise := iso.Optimise
	s.Diameter = round(iso.ToolDiameter * mmPerInch)
	s.Optimise = &optimise
	s.ExtraPasses = iso.ExtraPasses
	return s
}

func cutterSection(file string, c *model.Cutter) *layerSection {
	s := millSection(file, &c.Mill)
	optimise, steps, bridges := c.Optimise, c.DoSteps, c.BridgesNum
	s.Diameter = round(c.ToolDiameter * mmPerInch)
	s.Optimise = &optimise
	s.DoSteps = &steps
	s.StepSize = round(c.StepSize * mmPerInch)
	s.BridgesNum = &bridges
	s.BridgesHeight = round(c.BridgesHeight * mmPerInch)
	s.BridgesWidth = round(c.BridgesWidth * mmPerInch)
	return s
}
