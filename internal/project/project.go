// Package project loads milling projects and persists application preferences
// and custom G-code profiles.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/piwi3910/pcbmill/internal/board"
	"github.com/piwi3910/pcbmill/internal/importer"
	"github.com/piwi3910/pcbmill/internal/model"
)

const mmPerInch = 25.4

// ErrInvalidProject is returned for project files that decode but describe
// an unusable job.
var ErrInvalidProject = errors.New("invalid project")

// boardSection holds the [board] table. Zero values fall back to the app
// config defaults.
type boardSection struct {
	Mode            string  `toml:"mode,omitempty"`
	DPI             int     `toml:"dpi,omitzero"`
	FillOutline     *bool   `toml:"fill_outline,omitempty"`
	OutlineWidth    float64 `toml:"outline_width,omitzero"`
	Margin          float64 `toml:"margin,omitzero"`
	PointsPerCircle int     `toml:"points_per_circle,omitzero"`
	TSP2Opt         *bool   `toml:"tsp_2opt,omitempty"`
	ZeroStart       bool    `toml:"zero_start,omitempty"`
	OutputDir       string  `toml:"output_dir,omitempty"`
	DebugImages     bool    `toml:"debug_images,omitempty"`
}

// layerSection holds one tool section. Lengths are in the project units.
type layerSection struct {
	File string `toml:"file,omitempty"`
	Side string `toml:"side,omitempty"`

	Diameter       float64 `toml:"diameter,omitzero"`
	Feed           float64 `toml:"feed,omitzero"`
	VertFeed       float64 `toml:"vert_feed,omitzero"`
	Speed          int     `toml:"speed,omitzero"`
	ZChange        float64 `toml:"z_change,omitzero"`
	ZSafe          float64 `toml:"z_safe,omitzero"`
	ZWork          float64 `toml:"z_work,omitzero"`
	Tolerance      float64 `toml:"tolerance,omitzero"`
	MirrorAbsolute bool    `toml:"mirror_absolute,omitempty"`
	Optimise       *bool   `toml:"optimise,omitempty"`
	PreMilling     string  `toml:"pre_milling,omitempty"`
	PostMilling    string  `toml:"post_milling,omitempty"`

	// Isolation
	ExtraPasses int `toml:"extra_passes,omitzero"`

	// Outline cutting
	DoSteps       *bool   `toml:"do_steps,omitempty"`
	StepSize      float64 `toml:"step_size,omitzero"`
	BridgesNum    *int    `toml:"bridges_num,omitempty"`
	BridgesHeight float64 `toml:"bridges_height,omitzero"`
	BridgesWidth  float64 `toml:"bridges_width,omitzero"`

	// Drilling
	OneDrill    bool    `toml:"one_drill,omitempty"`
	CannedCycle bool    `toml:"canned_cycle,omitempty"`
	MillHoles   bool    `toml:"mill_holes,omitempty"`
	MaxDiameter float64 `toml:"max_diameter,omitzero"`
}

type projectFile struct {
	Name    string        `toml:"name,omitempty"`
	Units   string        `toml:"units,omitempty"`
	Profile string        `toml:"profile,omitempty"`
	Board   boardSection  `toml:"board,omitempty"`
	Front   *layerSection `toml:"front,omitempty"`
	Back    *layerSection `toml:"back,omitempty"`
	Outline *layerSection `toml:"outline,omitempty"`
	Drill   *layerSection `toml:"drill,omitempty"`
}

// Layer is a milled layer of a project, ready to be registered on a board.
type Layer struct {
	Name string
	Path string
	Side model.Side
	Tool model.Tool
}

// Project is a loaded milling job. Every length is in inches.
type Project struct {
	Name     string
	Path     string
	Settings model.Settings
	Layers   []Layer

	// Scale converts the lengths of the project and its layer files to inches.
	Scale float64

	// DrillPath is the hole table, empty when the job drills nothing.
	DrillPath string
	Driller   *model.Driller
}

// LoadProject reads a TOML project file. Unset board options come from
// defaults; pass the user's app config through LoadProjectWithConfig to
// honour saved preferences.
func LoadProject(path string) (*Project, error) {
	return LoadProjectWithConfig(path, model.DefaultAppConfig())
}

// LoadProjectWithConfig reads a TOML project file on top of the defaults in cfg.
func LoadProjectWithConfig(path string, cfg model.AppConfig) (*Project, error) {
	var pf projectFile
	md, err := toml.DecodeFile(path, &pf)
	if err != nil {
		return nil, fmt.Errorf("read project %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidProject, strings.Join(keys, ", "))
	}

	scale, err := unitScale(pf.Units)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Name:     pf.Name,
		Path:     path,
		Settings: model.DefaultSettings(),
		Scale:    scale,
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	cfg.ApplyToSettings(&p.Settings)
	if err := applyBoard(&p.Settings, pf.Board, scale); err != nil {
		return nil, err
	}
	if pf.Profile != "" {
		p.Settings.GCodeProfile = pf.Profile
	}
	if p.Settings.OutputDir != "" && !filepath.IsAbs(p.Settings.OutputDir) {
		p.Settings.OutputDir = filepath.Join(filepath.Dir(path), p.Settings.OutputDir)
	}

	dir := filepath.Dir(path)
	var frontTool *model.Isolator
	if pf.Front != nil {
		iso, err := isolatorFrom(board.Front, pf.Front, scale)
		if err != nil {
			return nil, err
		}
		frontTool = iso
		if err := p.addLayer(board.Front, dir, pf.Front, iso, model.SideFront); err != nil {
			return nil, err
		}
	}
	if pf.Back != nil {
		var tool *model.Isolator
		if frontTool != nil && !md.IsDefined("back", "diameter") {
			// Back copper without its own tool reuses the front isolator.
			tool = frontTool
		} else {
			tool, err = isolatorFrom(board.Back, pf.Back, scale)
			if err != nil {
				return nil, err
			}
		}
		if err := p.addLayer(board.Back, dir, pf.Back, tool, model.SideBack); err != nil {
			return nil, err
		}
	}
	if pf.Outline != nil {
		c, err := cutterFrom(pf.Outline, scale)
		if err != nil {
			return nil, err
		}
		if err := p.addLayer(board.Outline, dir, pf.Outline, c, model.SideAuto); err != nil {
			return nil, err
		}
	}
	if pf.Drill != nil {
		if pf.Drill.File == "" {
			return nil, fmt.Errorf("%w: section %q has no file", ErrInvalidProject, board.Drill)
		}
		d := model.DefaultDriller()
		applyMill(&d.Mill, pf.Drill, scale)
		side, err := parseSide(board.Drill, pf.Drill.Side)
		if err != nil {
			return nil, err
		}
		d.Backside = side == model.SideBack
		d.OneDrill = pf.Drill.OneDrill
		d.CannedCycle = pf.Drill.CannedCycle
		d.MillHoles = pf.Drill.MillHoles
		d.MaxDiameter = pf.Drill.MaxDiameter * scale
		if err := validateMill(board.Drill, &d.Mill); err != nil {
			return nil, err
		}
		if d.MaxDiameter < 0 {
			return nil, fmt.Errorf("%w: section %q has a negative max_diameter", ErrInvalidProject, board.Drill)
		}
		if (d.MillHoles || d.MaxDiameter > 0) && p.Cutter() == nil {
			return nil, fmt.Errorf("%w: section %q mills holes but there is no %s section", ErrInvalidProject, board.Drill, board.Outline)
		}
		p.DrillPath = resolvePath(dir, pf.Drill.File)
		p.Driller = d
	}

	if len(p.Layers) == 0 && p.Driller == nil {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidProject)
	}
	return p, nil
}

// Cutter returns the outline cutter, or nil when the project cuts no outline.
func (p *Project) Cutter() *model.Cutter {
	for _, l := range p.Layers {
		if c, ok := l.Tool.(*model.Cutter); ok && l.Name == board.Outline {
			return c
		}
	}
	return nil
}

// BoardConfig returns the composition options of the project.
func (p *Project) BoardConfig() board.Config {
	return board.ConfigFrom(p.Settings)
}

// ImportLayer loads the geometry of a layer, scaling file lengths to inches.
// DXF files are read as outlines; CSV and XLSX files as hole tables.
func ImportLayer(path string, scale float64) (importer.LayerImporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dxf":
		d, err := importer.LoadDXF(path, scale)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ".csv", ".xlsx", ".xlsm":
		t, err := importer.LoadDrillTable(path, scale)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported layer file %s", path)
	}
}

func (p *Project) addLayer(name, dir string, s *layerSection, tool model.Tool, def model.Side) error {
	if s.File == "" {
		return fmt.Errorf("%w: section %q has no file", ErrInvalidProject, name)
	}
	side := def
	if s.Side != "" {
		var err error
		if side, err = parseSide(name, s.Side); err != nil {
			return err
		}
	}
	p.Layers = append(p.Layers, Layer{
		Name: name,
		Path: resolvePath(dir, s.File),
		Side: side,
		Tool: tool,
	})
	return nil
}

func parseSide(name, s string) (model.Side, error) {
	if s == "" {
		return model.SideAuto, nil
	}
	side, err := model.ParseSide(s)
	if err != nil {
		return side, fmt.Errorf("%w: section %q: %w", ErrInvalidProject, name, err)
	}
	return side, nil
}

func resolvePath(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// unitScale returns the factor converting project lengths to inches.
func unitScale(units string) (float64, error) {
	switch strings.ToLower(units) {
	case "", "mm", "millimeters", "millimetres":
		return 1 / mmPerInch, nil
	case "in", "inch", "inches":
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: unknown units %q", ErrInvalidProject, units)
	}
}

func applyBoard(s *model.Settings, b boardSection, scale float64) error {
	if b.Mode != "" {
		mode, err := board.ParseRenderMode(b.Mode)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProject, err)
		}
		s.Vectorial = mode == board.Vectorized
	}
	if b.DPI < 0 || b.OutlineWidth < 0 || b.Margin < 0 || b.PointsPerCircle < 0 {
		return fmt.Errorf("%w: board options must not be negative", ErrInvalidProject)
	}
	if b.DPI > 0 {
		s.DPI = b.DPI
	}
	if b.FillOutline != nil {
		s.FillOutline = *b.FillOutline
	}
	if b.OutlineWidth > 0 {
		s.OutlineWidth = b.OutlineWidth * scale
	}
	s.Margin = b.Margin * scale
	if b.PointsPerCircle > 0 {
		s.PointsPerCircle = b.PointsPerCircle
	}
	if b.TSP2Opt != nil {
		s.TSP2Opt = *b.TSP2Opt
	}
	s.ZeroStart = b.ZeroStart
	if b.OutputDir != "" {
		s.OutputDir = b.OutputDir
	}
	s.DebugImages = b.DebugImages
	return nil
}

// applyMill overrides the defaults in m with the values set in s.
func applyMill(m *model.Mill, s *layerSection, scale float64) {
	if s.Feed != 0 {
		m.Feed = s.Feed * scale
	}
	if s.VertFeed != 0 {
		m.VertFeed = s.VertFeed * scale
	}
	if s.Speed != 0 {
		m.Speed = s.Speed
	}
	if s.ZChange != 0 {
		m.ZChange = s.ZChange * scale
	}
	if s.ZSafe != 0 {
		m.ZSafe = s.ZSafe * scale
	}
	if s.ZWork != 0 {
		m.ZWork = s.ZWork * scale
	}
	if s.Tolerance != 0 {
		m.Tolerance = s.Tolerance * scale
		m.ExplicitTolerance = true
	}
	m.MirrorAbsolute = s.MirrorAbsolute
	m.PreMilling = s.PreMilling
	m.PostMilling = s.PostMilling
}

func applyRouting(r *model.RoutingMill, s *layerSection, scale float64) {
	applyMill(&r.Mill, s, scale)
	if s.Diameter != 0 {
		r.ToolDiameter = s.Diameter * scale
	}
	if s.Optimise != nil {
		r.Optimise = *s.Optimise
	}
}

func isolatorFrom(name string, s *layerSection, scale float64) (*model.Isolator, error) {
	iso := model.DefaultIsolator()
	applyRouting(&iso.RoutingMill, s, scale)
	iso.ExtraPasses = s.ExtraPasses
	if iso.ExtraPasses < 0 {
		return nil, fmt.Errorf("%w: section %q: extra_passes must not be negative", ErrInvalidProject, name)
	}
	if err := validateRouting(name, &iso.RoutingMill); err != nil {
		return nil, err
	}
	return iso, nil
}

func cutterFrom(s *layerSection, scale float64) (*model.Cutter, error) {
	c := model.DefaultCutter()
	applyRouting(&c.RoutingMill, s, scale)
	if s.DoSteps != nil {
		c.DoSteps = *s.DoSteps
	}
	if s.StepSize != 0 {
		c.StepSize = s.StepSize * scale
	}
	if s.BridgesNum != nil {
		c.BridgesNum = *s.BridgesNum
	}
	if s.BridgesHeight != 0 {
		c.BridgesHeight = s.BridgesHeight * scale
	}
	if s.BridgesWidth != 0 {
		c.BridgesWidth = s.BridgesWidth * scale
	}
	if c.StepSize < 0 || c.BridgesNum < 0 || c.BridgesWidth < 0 {
		return nil, fmt.Errorf("%w: section %q: step and bridge settings must not be negative", ErrInvalidProject, board.Outline)
	}
	if err := validateRouting(board.Outline, &c.RoutingMill); err != nil {
		return nil, err
	}
	return c, nil
}

func validateRouting(name string, r *model.RoutingMill) error {
	if r.ToolDiameter <= 0 {
		return fmt.Errorf("%w: section %q: diameter must be positive", ErrInvalidProject, name)
	}
	return validateMill(name, &r.Mill)
}

func validateMill(name string, m *model.Mill) error {
	switch {
	case m.Feed < 0 || m.VertFeed < 0 || m.Speed < 0:
		return fmt.Errorf("%w: section %q: feeds and speed must not be negative", ErrInvalidProject, name)
	case m.ZWork > 0:
		return fmt.Errorf("%w: section %q: z_work must be at or below the surface", ErrInvalidProject, name)
	case m.ZSafe < 0 || m.ZChange < 0:
		return fmt.Errorf("%w: section %q: z_safe and z_change must be above the surface", ErrInvalidProject, name)
	case m.Tolerance < 0:
		return fmt.Errorf("%w: section %q: tolerance must not be negative", ErrInvalidProject, name)
	}
	return nil
}
