package cli

import (
	"errors"
	"fmt"

	"github.com/piwi3910/pcbmill/internal/board"
	"github.com/piwi3910/pcbmill/internal/gcode"
	"github.com/piwi3910/pcbmill/internal/importer"
	"github.com/piwi3910/pcbmill/internal/logging"
	"github.com/piwi3910/pcbmill/internal/model"
	"github.com/piwi3910/pcbmill/internal/project"
)

// job is a loaded project with its composed board and drill table.
type job struct {
	project *project.Project
	board   *board.Board // nil when the project only drills
	drills  *importer.DrillTable
	bounds  model.Bounds
}

// loadJob reads the project at path, imports every layer and composes the
// board.
func loadJob(path string) (*job, error) {
	cfg, err := project.LoadAppConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	p, err := project.LoadProjectWithConfig(path, cfg)
	if err != nil {
		return nil, err
	}
	return composeJob(p)
}

func composeJob(p *project.Project) (*job, error) {
	log := logging.Logger()
	j := &job{project: p, bounds: model.EmptyBounds()}

	if p.DrillPath != "" {
		t, err := importer.LoadDrillTable(p.DrillPath, p.Scale)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", board.Drill, err)
		}
		j.drills = t
		minX, maxX, minY, maxY := t.Bounds()
		j.bounds = model.Bounds{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}
	}

	if len(p.Layers) == 0 {
		return j, nil
	}

	b := board.New(p.BoardConfig())
	for _, l := range p.Layers {
		imp, err := project.ImportLayer(l.Path, p.Scale)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.Name, err)
		}
		if err := b.Register(l.Name, imp, l.Tool, l.Side); err != nil {
			return nil, err
		}
		log.Debug("layer registered", "layer", l.Name, "file", l.Path)
	}
	if err := b.Compose(); err != nil {
		return nil, err
	}
	bounds, err := b.Bounds()
	if err != nil {
		return nil, err
	}
	j.board = b
	j.bounds = bounds
	return j, nil
}

// id returns the job identifier printed in program headers.
func (j *job) id() string {
	if j.board != nil {
		return j.board.ID
	}
	return j.project.Name
}

// generator returns a G-code generator for the project profile. Back side
// drilling mirrors about the same axis as the back copper.
func (j *job) generator() (*gcode.Generator, error) {
	s := j.project.Settings
	profile := model.GetProfile(s.GCodeProfile)
	if s.GCodeProfile != "" && profile.Name != s.GCodeProfile {
		return nil, fmt.Errorf("unknown G-code profile %q", s.GCodeProfile)
	}

	opts := gcode.Options{
		MirrorAxis: j.bounds.CenterX(),
		TSP2Opt:    s.TSP2Opt,
	}
	if d := j.project.Driller; d != nil && d.MirrorAbsolute {
		opts.MirrorAxis = 0
	}
	if s.ZeroStart && !j.bounds.IsEmpty() {
		opts.Origin = model.Point2D{X: j.bounds.MinX, Y: j.bounds.MinY}
	}
	return gcode.New(profile, opts), nil
}

// errNoBoard is returned by commands that need milled layers.
var errNoBoard = errors.New("project has no milled layers")
