package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbmill/internal/gcode"
	"github.com/piwi3910/pcbmill/internal/model"
)

var statsMaxDepth float64

var statsCmd = &cobra.Command{
	Use:   "stats <file.gcode>",
	Short: "Print travel statistics of a G-code program",
	Long: `Parse a G-code program and print its cut and rapid travel, depth range and
estimated feed time. Rapid moves below the board surface are reported, as are
moves deeper than --max-depth.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd.OutOrStdout(), args[0], statsMaxDepth)
	},
}

func init() {
	statsCmd.Flags().Float64Var(&statsMaxDepth, "max-depth", 0, "Deepest allowed Z in program units (e.g. -1.8); 0 disables the check")
}

// errUnsafeProgram is returned when a program fails its safety checks.
var errUnsafeProgram = errors.New("program failed safety checks")

func runStats(w io.Writer, path string, maxDepth float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog := gcode.Parse(string(data))
	s := gcode.ComputeStats(prog.Moves)

	unit := "mm"
	if !prog.Metric {
		unit = "in"
	}
	length := func(v float64) string { return fmt.Sprintf("%.3f %s", v, unit) }

	printSection(w, path)
	printLabelValue(w, "Moves", fmt.Sprintf("%d rapid, %d feed, %d plunge, %d retract", s.Rapids, s.Feeds, s.Plunges, s.Retracts))
	printLabelValue(w, "Cut length", length(s.CutLength))
	printLabelValue(w, "Rapid travel", length(s.RapidLength))
	printLabelValue(w, "Z range", fmt.Sprintf("%s to %s", length(s.MinZ), length(s.MaxZ)))
	printLabelValue(w, "Feed time", fmt.Sprintf("%.1f min", s.EstimatedTime))
	_, _ = fmt.Fprintln(w)

	violations := gcode.CheckProgram(prog.Moves, gcode.Limits{Area: model.EmptyBounds(), MaxDepth: maxDepth})
	if len(violations) == 0 {
		printSuccess(w, "No unsafe moves")
		return nil
	}
	for _, v := range violations {
		printError(w, v.String())
	}
	printWarning(w, formatCount(len(violations), "unsafe move", "unsafe moves"))
	return errUnsafeProgram
}
