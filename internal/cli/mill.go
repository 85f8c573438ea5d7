package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbmill/internal/board"
	"github.com/piwi3910/pcbmill/internal/export"
	"github.com/piwi3910/pcbmill/internal/logging"
	"github.com/piwi3910/pcbmill/internal/project"
)

type millOptions struct {
	outputDir string
	profile   string
	pdf       bool
	labels    bool
	summary   bool
}

var millOpts millOptions

// millDrill names the program of holes milled with the outline cutter.
const millDrill = "milldrill"

var millCmd = &cobra.Command{
	Use:   "mill <project.toml>",
	Short: "Write G-code for every layer of a project",
	Long: `Compose the layers of a project and write one G-code program per layer,
plus a drilling program when the project has a hole table. Holes wider than
the drill section's max_diameter, or every hole with mill_holes, are milled
with the outline cutter into a separate milldrill program.

Programs are written to the project's output directory as
<project>_<layer>.gcode. Reports are optional.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMill(cmd.OutOrStdout(), args[0], millOpts)
	},
}

func init() {
	millCmd.Flags().StringVarP(&millOpts.outputDir, "output", "o", "", "Output directory (default: project setting or project directory)")
	millCmd.Flags().StringVar(&millOpts.profile, "profile", "", "G-code profile overriding the project setting")
	millCmd.Flags().BoolVar(&millOpts.pdf, "pdf", false, "Write a PDF report of the toolpaths")
	millCmd.Flags().BoolVar(&millOpts.labels, "labels", false, "Write QR-coded setup labels as PDF")
	millCmd.Flags().BoolVar(&millOpts.summary, "summary", false, "Write an XLSX job summary")
}

func runMill(w io.Writer, path string, opts millOptions) error {
	cfg, err := project.LoadAppConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	p, err := project.LoadProjectWithConfig(path, cfg)
	if err != nil {
		return err
	}
	if opts.profile != "" {
		p.Settings.GCodeProfile = opts.profile
	}
	if opts.outputDir != "" {
		p.Settings.OutputDir = opts.outputDir
	}
	outDir := p.Settings.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	p.Settings.OutputDir = outDir

	j, err := composeJob(p)
	if err != nil {
		return err
	}
	gen, err := j.generator()
	if err != nil {
		return err
	}

	printSection(w, fmt.Sprintf("%s (%s, profile %s)", p.Name, j.id(), gen.Profile().Name))

	write := func(name, code string) error {
		file := filepath.Join(outDir, fmt.Sprintf("%s_%s.gcode", p.Name, name))
		if err := os.WriteFile(file, []byte(code), 0644); err != nil {
			return err
		}
		printSuccess(w, fmt.Sprintf("%-8s %s", name, file))
		return nil
	}

	if j.board != nil {
		for _, name := range j.board.Layers() {
			l, err := j.board.Layer(name)
			if err != nil {
				return err
			}
			code, err := gen.GenerateLayer(l, j.id())
			if err != nil {
				return err
			}
			if err := write(name, code); err != nil {
				return err
			}
		}
	}
	if j.drills != nil {
		drill, milled := p.Driller.Split(j.drills.Holes())
		if len(drill) > 0 || len(milled) == 0 {
			if err := write(board.Drill, gen.GenerateDrill(drill, p.Driller, j.id())); err != nil {
				return err
			}
		}
		if len(milled) > 0 {
			c := p.Cutter()
			if c == nil {
				return fmt.Errorf("%d holes to mill without an outline cutter", len(milled))
			}
			code, plunged := gen.GenerateMilledHoles(milled, p.Driller, c, j.id())
			if plunged > 0 {
				printWarning(w, formatCount(plunged, "hole", "holes")+" no wider than the cutter, plunged only")
			}
			if err := write(millDrill, code); err != nil {
				return err
			}
		}
	}

	if opts.pdf || opts.labels || opts.summary {
		if j.board == nil {
			return errNoBoard
		}
		reports := []struct {
			enabled bool
			suffix  string
			export  func(string, *board.Board) error
		}{
			{opts.pdf, "report.pdf", export.ExportPDF},
			{opts.labels, "labels.pdf", export.ExportLabels},
			{opts.summary, "summary.xlsx", export.ExportSummary},
		}
		for _, r := range reports {
			if !r.enabled {
				continue
			}
			file := filepath.Join(outDir, fmt.Sprintf("%s_%s", p.Name, r.suffix))
			if err := r.export(file, j.board); err != nil {
				return fmt.Errorf("export %s: %w", r.suffix, err)
			}
			printSuccess(w, fmt.Sprintf("%-8s %s", "report", file))
		}
	}

	if err := project.RememberProject(configPath, path); err != nil {
		logging.Logger().Warn("recent projects not updated", "err", err)
	}
	return nil
}
