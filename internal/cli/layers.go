package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbmill/internal/export"
)

var layersCmd = &cobra.Command{
	Use:   "layers <project.toml>",
	Short: "Compose a project and list its layers",
	Long:  `Compose the layers of a project and print the board bounds and the toolpaths of every layer.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLayers(cmd.OutOrStdout(), args[0])
	},
}

func runLayers(w io.Writer, path string) error {
	j, err := loadJob(path)
	if err != nil {
		return err
	}

	printSection(w, fmt.Sprintf("%s (%s)", j.project.Name, j.id()))
	printLabelValue(w, "Size", fmt.Sprintf("%s x %s", mm(j.bounds.Width()), mm(j.bounds.Height())))
	printLabelValue(w, "Origin", fmt.Sprintf("%s, %s", mm(j.bounds.MinX), mm(j.bounds.MinY)))
	if j.drills != nil {
		printLabelValue(w, "Drill hits", fmt.Sprintf("%d", len(j.drills.Holes())))
	}
	_, _ = fmt.Fprintln(w)

	if j.board == nil {
		printEmptyState(w, "No milled layers")
		return nil
	}

	reports, err := export.CollectReports(j.board)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.Name,
			r.Side.String(),
			r.Tool,
			mm(r.Diameter),
			formatCount(len(r.Toolpaths), "path", "paths"),
			fmt.Sprintf("%.1f mm", r.CutLength*25.4),
			fmt.Sprintf("%.1f min", r.EstimatedTime),
		})
	}
	printTable(w, []string{"LAYER", "SIDE", "TOOL", "DIAMETER", "TOOLPATHS", "CUT", "TIME"}, rows)
	return nil
}
