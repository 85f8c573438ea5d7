package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yofu/dxf"

	"github.com/piwi3910/pcbmill/internal/model"
	"github.com/piwi3910/pcbmill/internal/project"
)

// setupTestEnv points the global config at a temporary directory and
// disables colors so output can be matched.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	oldConfig, oldProfiles, oldNoColor := configPath, profilesPath, color.NoColor
	oldCustom := model.CustomProfiles
	configPath = filepath.Join(dir, "config.json")
	profilesPath = filepath.Join(dir, "profiles.json")
	color.NoColor = true
	model.CustomProfiles = nil
	profileFrom, profileUnits, profileDecimals, profileRename = "", "", -1, ""
	t.Cleanup(func() {
		configPath, profilesPath, color.NoColor = oldConfig, oldProfiles, oldNoColor
		model.CustomProfiles = oldCustom
	})
	return dir
}

// writeFixture writes a 40 x 30 mm board with two pads and two drill hits.
func writeFixture(t *testing.T, dir string) string {
	t.Helper()

	outline := dxf.NewDrawing()
	outline.Line(0, 0, 0, 40, 0, 0)
	outline.Line(40, 0, 0, 40, 30, 0)
	outline.Line(40, 30, 0, 0, 30, 0)
	outline.Line(0, 30, 0, 0, 0, 0)
	require.NoError(t, outline.SaveAs(filepath.Join(dir, "outline.dxf")))

	front := dxf.NewDrawing()
	front.Circle(10, 10, 0, 1.5)
	front.Circle(30, 20, 0, 1.5)
	require.NoError(t, front.SaveAs(filepath.Join(dir, "front.dxf")))

	holes := "x,y,diameter\n10,10,0.8\n30,20,1.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "holes.csv"), []byte(holes), 0644))

	proj := `name = "blinky"
units = "mm"
profile = "Grbl"

[board]
mode = "vector"
zero_start = true
output_dir = "out"

[front]
file = "front.dxf"
diameter = 0.2

[outline]
file = "outline.dxf"
diameter = 2.0

[drill]
file = "holes.csv"
`
	path := filepath.Join(dir, "blinky.toml")
	require.NoError(t, os.WriteFile(path, []byte(proj), 0644))
	return path
}

func TestRunMill(t *testing.T) {
	dir := setupTestEnv(t)
	path := writeFixture(t, dir)

	var out bytes.Buffer
	require.NoError(t, runMill(&out, path, millOptions{summary: true}))

	outDir := filepath.Join(dir, "out")
	for _, name := range []string{"front", "outline", "drill"} {
		file := filepath.Join(outDir, "blinky_"+name+".gcode")
		data, err := os.ReadFile(file)
		require.NoError(t, err, "missing program for %s", name)
		assert.Contains(t, string(data), "G21", "Grbl programs are metric")
		assert.Contains(t, out.String(), file)
	}
	assert.FileExists(t, filepath.Join(outDir, "blinky_summary.xlsx"))
	assert.Contains(t, out.String(), "profile Grbl")

	// Every program is safe to run.
	for _, name := range []string{"front", "outline", "drill"} {
		var stats bytes.Buffer
		file := filepath.Join(outDir, "blinky_"+name+".gcode")
		assert.NoError(t, runStats(&stats, file, 0), name)
		assert.Contains(t, stats.String(), "No unsafe moves")
	}

	// The project is remembered.
	cfg, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "blinky.toml")
}

func TestRunMillMillsWideHoles(t *testing.T) {
	dir := setupTestEnv(t)
	path := writeFixture(t, dir)

	holes := "x,y,diameter\n10,10,0.8\n30,20,3.2\n5,25,1.2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "holes.csv"), []byte(holes), 0644))
	proj, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(proj, "max_diameter = 1.0\ncanned_cycle = true\n"...), 0644))

	var out bytes.Buffer
	require.NoError(t, runMill(&out, path, millOptions{profile: "LinuxCNC"}))
	assert.Contains(t, out.String(), "1 hole no wider than the cutter")

	outDir := filepath.Join(dir, "out")
	drill, err := os.ReadFile(filepath.Join(outDir, "blinky_drill.gcode"))
	require.NoError(t, err)
	assert.Contains(t, string(drill), "G81 R")
	assert.Equal(t, 1, strings.Count(string(drill), "Change tool: drill"))

	milled, err := os.ReadFile(filepath.Join(outDir, "blinky_milldrill.gcode"))
	require.NoError(t, err)
	assert.Contains(t, string(milled), "G2 X")
	assert.Contains(t, string(milled), "Holes: 2")

	for _, name := range []string{"drill", "milldrill"} {
		var stats bytes.Buffer
		assert.NoError(t, runStats(&stats, filepath.Join(outDir, "blinky_"+name+".gcode"), 0), name)
	}
}

func TestRunMillUnknownProfile(t *testing.T) {
	dir := setupTestEnv(t)
	path := writeFixture(t, dir)

	err := runMill(&bytes.Buffer{}, path, millOptions{profile: "NoSuchController"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchController")
}

func TestRunMillOutputOverride(t *testing.T) {
	dir := setupTestEnv(t)
	path := writeFixture(t, dir)
	outDir := filepath.Join(dir, "elsewhere")

	require.NoError(t, runMill(&bytes.Buffer{}, path, millOptions{outputDir: outDir, profile: "LinuxCNC"}))

	data, err := os.ReadFile(filepath.Join(outDir, "blinky_front.gcode"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "G20")
}

func TestRunLayers(t *testing.T) {
	dir := setupTestEnv(t)
	path := writeFixture(t, dir)

	var out bytes.Buffer
	require.NoError(t, runLayers(&out, path))

	s := out.String()
	assert.Contains(t, s, "blinky")
	assert.Contains(t, s, "Drill hits: 2")
	assert.Contains(t, s, "front")
	assert.Contains(t, s, "isolator")
	assert.Contains(t, s, "outline")
	assert.Contains(t, s, "cutter")
	assert.Contains(t, s, "2 paths")
}

func TestRunStatsFlagsUnsafeMoves(t *testing.T) {
	setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "bad.gcode")
	program := "G21\nG0 X0 Y0 Z1\nG1 Z-0.5 F100\nG0 X10 Y0\nG1 Z-3\n"
	require.NoError(t, os.WriteFile(path, []byte(program), 0644))

	var out bytes.Buffer
	err := runStats(&out, path, -2)
	assert.ErrorIs(t, err, errUnsafeProgram)
	assert.Contains(t, out.String(), "line 4: rapid move below the board surface")
	assert.Contains(t, out.String(), "line 5: depth")
	assert.Contains(t, out.String(), "2 unsafe moves")
}

func TestRunStatsMissingFile(t *testing.T) {
	setupTestEnv(t)
	assert.Error(t, runStats(&bytes.Buffer{}, filepath.Join(t.TempDir(), "none.gcode"), 0))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", configPath, "--profiles", profilesPath, "--no-color"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommandHelp(t *testing.T) {
	setupTestEnv(t)
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "pcbmill")
	assert.Contains(t, out, "Milling:")
	assert.Contains(t, out, "mill")
}

func TestRootCommandWithoutArgsPrintsHelp(t *testing.T) {
	setupTestEnv(t)
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Milling:")
}

func TestVersionCommand(t *testing.T) {
	setupTestEnv(t)
	SetVersion("1.2.3")
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)
}

func TestInitCommand(t *testing.T) {
	dir := setupTestEnv(t)
	path := filepath.Join(dir, "starter.toml")

	out, err := execute(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `name = "starter"`)

	_, err = execute(t, "init", path)
	assert.Error(t, err, "init must not overwrite")
}

func TestProfilesCommand(t *testing.T) {
	setupTestEnv(t)
	out, err := execute(t, "profiles")
	require.NoError(t, err)
	for _, name := range []string{"Grbl", "Mach3", "LinuxCNC", "Generic"} {
		assert.Contains(t, out, name)
	}
	assert.True(t, strings.Contains(out, "built-in"))
}

func TestProfilesLifecycle(t *testing.T) {
	dir := setupTestEnv(t)
	shared := filepath.Join(dir, "shop.json")

	out, err := execute(t, "profiles", "add", "Shop", "--from", "Grbl", "--decimals", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Added profile Shop")

	saved, err := project.LoadCustomProfiles(profilesPath)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Shop", saved[0].Name)
	assert.Equal(t, 2, saved[0].DecimalPlaces)
	assert.Equal(t, model.GetProfile("Grbl").StartCode, saved[0].StartCode)

	_, err = execute(t, "profiles", "export", "Shop", shared)
	require.NoError(t, err)
	assert.FileExists(t, shared)

	_, err = execute(t, "profiles", "remove", "Shop")
	require.NoError(t, err)
	saved, err = project.LoadCustomProfiles(profilesPath)
	require.NoError(t, err)
	assert.Empty(t, saved)

	out, err = execute(t, "profiles", "import", shared, "--name", "Shop2")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported profile Shop2")
	saved, err = project.LoadCustomProfiles(profilesPath)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Shop2", saved[0].Name)
	assert.Equal(t, 2, saved[0].DecimalPlaces)

	out, err = execute(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "Shop2")
}

func TestProfilesAddCopiesGenericByDefault(t *testing.T) {
	setupTestEnv(t)
	var out bytes.Buffer
	require.NoError(t, runProfileAdd(&out, "Router", "", "inches", -1))

	p := model.GetProfile("Router")
	assert.Equal(t, "Router", p.Name)
	assert.False(t, p.Metric())
	assert.Equal(t, model.GetProfile("Generic").DecimalPlaces, p.DecimalPlaces)
}

func TestProfilesCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"add existing", []string{"profiles", "add", "Grbl"}, "already exists"},
		{"add from unknown", []string{"profiles", "add", "Shop", "--from", "Haas"}, "unknown profile"},
		{"remove built-in", []string{"profiles", "remove", "Mach3"}, "built-in"},
		{"remove missing", []string{"profiles", "remove", "Shop"}, "not found"},
		{"export unknown", []string{"profiles", "export", "Haas", "haas.json"}, "unknown profile"},
		{"import missing", []string{"profiles", "import", "missing.json"}, "import"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestEnv(t)
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInvalidCommand(t *testing.T) {
	setupTestEnv(t)
	_, err := execute(t, "engrave")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
