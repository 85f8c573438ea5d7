package project

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/piwi3910/pcbmill/internal/board"
	"github.com/piwi3910/pcbmill/internal/importer"
	"github.com/piwi3910/pcbmill/internal/model"
)

func writeProject(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

const fullProject = `
name = "blinky"
units = "mm"
profile = "Grbl"

[board]
mode = "vector"
dpi = 800
fill_outline = false
margin = 2.54
tsp_2opt = false
output_dir = "out"

[front]
file = "front.dxf"
diameter = 0.254
feed = 254
z_work = -0.0508
extra_passes = 2

[back]
file = "back.dxf"

[outline]
file = "outline.dxf"
diameter = 2.54
do_steps = false
bridges_num = 0

[drill]
file = "holes.csv"
side = "back"
z_work = -1.778
`

func TestLoadProject(t *testing.T) {
	path := writeProject(t, fullProject)

	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if p.Name != "blinky" {
		t.Errorf("expected name blinky, got %q", p.Name)
	}

	s := p.Settings
	if !s.Vectorial || s.DPI != 800 || s.FillOutline || s.TSP2Opt {
		t.Errorf("board options not applied: %+v", s)
	}
	if !near(s.Margin, 0.1) {
		t.Errorf("margin = %f in, want 0.1", s.Margin)
	}
	if s.GCodeProfile != "Grbl" {
		t.Errorf("expected profile Grbl, got %s", s.GCodeProfile)
	}
	if s.OutputDir != filepath.Join(filepath.Dir(path), "out") {
		t.Errorf("output dir not resolved against the project: %s", s.OutputDir)
	}
	if p.BoardConfig().Mode != board.Vectorized {
		t.Error("expected a vectorized board config")
	}

	if len(p.Layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(p.Layers))
	}
	front, back, outline := p.Layers[0], p.Layers[1], p.Layers[2]
	if front.Name != board.Front || back.Name != board.Back || outline.Name != board.Outline {
		t.Errorf("unexpected layer order %s, %s, %s", front.Name, back.Name, outline.Name)
	}
	if front.Path != filepath.Join(filepath.Dir(path), "front.dxf") {
		t.Errorf("layer path not resolved: %s", front.Path)
	}

	iso, ok := front.Tool.(*model.Isolator)
	if !ok {
		t.Fatalf("front tool is %T, want *model.Isolator", front.Tool)
	}
	if !near(iso.ToolDiameter, 0.01) || !near(iso.Feed, 10) || !near(iso.ZWork, -0.002) {
		t.Errorf("front tool not converted to inches: %+v", iso.RoutingMill)
	}
	if iso.ExtraPasses != 2 {
		t.Errorf("expected 2 extra passes, got %d", iso.ExtraPasses)
	}
	if back.Tool != front.Tool {
		t.Error("back layer should share the front isolator")
	}
	if back.Side != model.SideBack || outline.Side != model.SideAuto {
		t.Errorf("unexpected sides %s, %s", back.Side, outline.Side)
	}

	c, ok := outline.Tool.(*model.Cutter)
	if !ok {
		t.Fatalf("outline tool is %T, want *model.Cutter", outline.Tool)
	}
	if !near(c.ToolDiameter, 0.1) || c.DoSteps || c.BridgesNum != 0 {
		t.Errorf("outline tool not applied: %+v", c)
	}

	if p.Driller == nil || !p.Driller.Backside || !near(p.Driller.ZWork, -0.07) {
		t.Errorf("drill settings not applied: %+v", p.Driller)
	}
	if p.DrillPath != filepath.Join(filepath.Dir(path), "holes.csv") {
		t.Errorf("drill path not resolved: %s", p.DrillPath)
	}
}

func TestLoadProjectBackWithOwnTool(t *testing.T) {
	path := writeProject(t, `
units = "in"
[front]
file = "front.dxf"
[back]
file = "back.dxf"
diameter = 0.01
`)
	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if p.Layers[1].Tool == p.Layers[0].Tool {
		t.Error("back layer with its own diameter should not share the front tool")
	}
	if !near(model.Diameter(p.Layers[1].Tool), 0.01) {
		t.Errorf("back diameter = %f, want 0.01 in", model.Diameter(p.Layers[1].Tool))
	}
	if p.Name != "job" {
		t.Errorf("expected the file name as project name, got %q", p.Name)
	}
}

func TestLoadProjectDrillModes(t *testing.T) {
	path := writeProject(t, `
units = "mm"
[outline]
file = "outline.dxf"
diameter = 1.0
[drill]
file = "holes.csv"
one_drill = true
canned_cycle = true
max_diameter = 1.27
`)
	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	d := p.Driller
	if !d.OneDrill || !d.CannedCycle || d.MillHoles {
		t.Errorf("drill modes not applied: %+v", d)
	}
	if !near(d.MaxDiameter, 0.05) {
		t.Errorf("max diameter = %f in, want 0.05", d.MaxDiameter)
	}
	if c := p.Cutter(); c == nil || !near(c.ToolDiameter, 1.0/25.4) {
		t.Errorf("expected the outline cutter, got %+v", c)
	}
}

func TestLoadProjectUsesAppConfigDefaults(t *testing.T) {
	path := writeProject(t, `
[front]
file = "front.dxf"
`)
	cfg := model.DefaultAppConfig()
	cfg.DefaultDPI = 1500
	cfg.DefaultGCodeProfile = "Mach3"

	p, err := LoadProjectWithConfig(path, cfg)
	if err != nil {
		t.Fatalf("LoadProjectWithConfig failed: %v", err)
	}
	if p.Settings.DPI != 1500 || p.Settings.GCodeProfile != "Mach3" {
		t.Errorf("app config defaults not applied: %+v", p.Settings)
	}
}

func TestLoadProjectRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative diameter", "[front]\nfile = \"f.dxf\"\ndiameter = -0.2\n"},
		{"negative extra passes", "[front]\nfile = \"f.dxf\"\nextra_passes = -1\n"},
		{"depth above surface", "[outline]\nfile = \"o.dxf\"\nz_work = 1.0\n"},
		{"negative bridges", "[outline]\nfile = \"o.dxf\"\nbridges_num = -2\n"},
		{"negative feed", "[drill]\nfile = \"d.csv\"\nfeed = -5\n"},
		{"missing file", "[front]\ndiameter = 0.2\n"},
		{"drill without file", "[drill]\nz_work = -1\n"},
		{"bad side", "[front]\nfile = \"f.dxf\"\nside = \"top\"\n"},
		{"bad units", "units = \"furlongs\"\n[front]\nfile = \"f.dxf\"\n"},
		{"bad mode", "[board]\nmode = \"hologram\"\n[front]\nfile = \"f.dxf\"\n"},
		{"negative dpi", "[board]\ndpi = -10\n[front]\nfile = \"f.dxf\"\n"},
		{"unknown key", "[front]\nfile = \"f.dxf\"\ndiametr = 0.2\n"},
		{"no layers", "name = \"empty\"\n"},
		{"milled holes without outline", "[drill]\nfile = \"d.csv\"\nmill_holes = true\n"},
		{"negative max diameter", "[outline]\nfile = \"o.dxf\"\n[drill]\nfile = \"d.csv\"\nmax_diameter = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProject(writeProject(t, tt.content))
			if !errors.Is(err, ErrInvalidProject) {
				t.Fatalf("expected ErrInvalidProject, got %v", err)
			}
		})
	}
}

func TestLoadProjectSyntaxError(t *testing.T) {
	_, err := LoadProject(writeProject(t, "[front\nfile = "))
	if err == nil {
		t.Fatal("expected error for malformed TOML")
	}
	if errors.Is(err, ErrInvalidProject) {
		t.Error("syntax errors should not be reported as invalid projects")
	}
}

func TestLoadProjectMissingFile(t *testing.T) {
	if _, err := LoadProject(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for a missing project file")
	}
}

func TestWriteTemplateLoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new", "board.toml")

	if err := WriteTemplate(path, "starter"); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}
	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if p.Name != "starter" || len(p.Layers) != 3 || p.Driller == nil {
		t.Fatalf("unexpected template project: %+v", p)
	}

	def := model.DefaultIsolator()
	if math.Abs(model.Diameter(p.Layers[0].Tool)-def.ToolDiameter) > 1e-4 {
		t.Errorf("front diameter = %f, want %f", model.Diameter(p.Layers[0].Tool), def.ToolDiameter)
	}
	if p.Layers[1].Tool != p.Layers[0].Tool {
		t.Error("template back layer should share the front tool")
	}
	c := p.Layers[2].Tool.(*model.Cutter)
	if !c.DoSteps || c.BridgesNum != 2 || math.Abs(c.BridgesHeight+0.04) > 1e-4 {
		t.Errorf("cutter defaults lost: %+v", c)
	}

	if err := WriteTemplate(path, "again"); err == nil {
		t.Error("expected WriteTemplate to refuse overwriting")
	}
}

func TestWriteTemplateBackFollowsFront(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.toml")
	if err := WriteTemplate(path, "starter"); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}

	var pf projectFile
	md, err := toml.DecodeFile(path, &pf)
	if err != nil {
		t.Fatalf("decode template: %v", err)
	}
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "back" && key[1] != "file" {
			t.Errorf("template [back] should only name its file, found %q", key[1])
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// The front table comes first, so this edits the isolator only.
	first := regexp.MustCompile(`diameter = [0-9.]+`).FindIndex(data)
	if first == nil {
		t.Fatal("template has no diameter")
	}
	edited := string(data[:first[0]]) + "diameter = 0.3" + string(data[first[1]:])
	if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("edited template does not load: %v", err)
	}
	want := 0.3 / mmPerInch
	for _, l := range p.Layers[:2] {
		if !near(model.Diameter(l.Tool), want) {
			t.Errorf("%s diameter = %f, want %f", l.Name, model.Diameter(l.Tool), want)
		}
	}
}

func TestImportLayer(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "holes.csv")
	if err := os.WriteFile(csvPath, []byte("x,y,diameter\n2.54,2.54,0.8\n5.08,2.54,1.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	imp, err := ImportLayer(csvPath, 1/mmPerInch)
	if err != nil {
		t.Fatalf("ImportLayer failed: %v", err)
	}
	table, ok := imp.(*importer.DrillTable)
	if !ok {
		t.Fatalf("expected a drill table, got %T", imp)
	}
	if len(table.Holes()) != 2 {
		t.Errorf("expected 2 holes, got %d", len(table.Holes()))
	}

	if _, err := ImportLayer(filepath.Join(dir, "front.gbr"), 1); err == nil {
		t.Error("expected error for an unsupported file type")
	}
	if _, err := ImportLayer(filepath.Join(dir, "missing.dxf"), 1); err == nil {
		t.Error("expected error for a missing DXF file")
	}
}
