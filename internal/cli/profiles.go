package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbmill/internal/model"
	"github.com/piwi3910/pcbmill/internal/project"
)

var (
	profileFrom     string
	profileUnits    string
	profileDecimals int
	profileRename   string
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List and manage G-code profiles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listProfiles(cmd.OutOrStdout())
	},
}

var profilesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a custom profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProfileAdd(cmd.OutOrStdout(), args[0], profileFrom, profileUnits, profileDecimals)
	},
}

var profilesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a custom profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProfileRemove(cmd.OutOrStdout(), args[0])
	},
}

var profilesExportCmd = &cobra.Command{
	Use:   "export <name> <file.json>",
	Short: "Write a profile to a file for sharing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProfileExport(cmd.OutOrStdout(), args[0], args[1])
	},
}

var profilesImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Add a shared profile to the custom profiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProfileImport(cmd.OutOrStdout(), args[0], profileRename)
	},
}

func init() {
	profilesAddCmd.Flags().StringVar(&profileFrom, "from", "", "Copy the settings of this profile (default: Generic)")
	profilesAddCmd.Flags().StringVar(&profileUnits, "units", "", `Output units, "mm" or "inches"`)
	profilesAddCmd.Flags().IntVar(&profileDecimals, "decimals", -1, "Decimal places of coordinates")
	profilesImportCmd.Flags().StringVar(&profileRename, "name", "", "Store the profile under this name")

	profilesCmd.AddCommand(profilesAddCmd, profilesRemoveCmd, profilesExportCmd, profilesImportCmd)
}

func listProfiles(w io.Writer) {
	rows := make([][]string, 0, len(model.AllProfiles()))
	for _, p := range model.AllProfiles() {
		kind := "custom"
		if p.IsBuiltIn {
			kind = "built-in"
		}
		units := "mm"
		if !p.Metric() {
			units = "in"
		}
		rows = append(rows, []string{p.Name, units, kind, p.Description})
	}
	printSection(w, "G-code profiles")
	printTable(w, []string{"NAME", "UNITS", "KIND", "DESCRIPTION"}, rows)
	_, _ = fmt.Fprintln(w)
	_, _ = dimColor.Fprintf(w, "  Custom profiles: %s\n", strings.TrimSpace(profilesPath))
}

// knownProfile reports whether name resolves to a profile rather than the
// Generic fallback.
func knownProfile(name string) bool {
	return slices.Contains(model.GetProfileNames(), name)
}

// saveProfiles writes the registered custom profiles back to disk. An
// unreadable profiles file is left alone.
func saveProfiles() error {
	if _, err := project.LoadCustomProfiles(profilesPath); err != nil {
		return fmt.Errorf("custom profiles not saved: %w", err)
	}
	return project.SaveCustomProfiles(profilesPath, model.CustomProfiles)
}

func runProfileAdd(w io.Writer, name, from, units string, decimals int) error {
	if knownProfile(name) {
		return fmt.Errorf("profile %q already exists", name)
	}
	p := model.NewCustomProfile(name)
	if from != "" {
		if !knownProfile(from) {
			return fmt.Errorf("unknown profile %q", from)
		}
		base := model.GetProfile(from)
		base.Name = name
		base.Description = fmt.Sprintf("Custom profile based on %s", from)
		base.StartCode = slices.Clone(base.StartCode)
		base.EndCode = slices.Clone(base.EndCode)
		p = base
	}
	if units != "" {
		p.Units = units
	}
	if decimals >= 0 {
		p.DecimalPlaces = decimals
	}

	if err := model.AddCustomProfile(p); err != nil {
		return err
	}
	if err := saveProfiles(); err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Added profile %s", name))
	return nil
}

func runProfileRemove(w io.Writer, name string) error {
	if err := model.RemoveCustomProfile(name); err != nil {
		return err
	}
	if err := saveProfiles(); err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Removed profile %s", name))
	return nil
}

func runProfileExport(w io.Writer, name, path string) error {
	if !knownProfile(name) {
		return fmt.Errorf("unknown profile %q", name)
	}
	if err := project.ExportProfile(path, model.GetProfile(name)); err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Exported %s to %s", name, path))
	return nil
}

func runProfileImport(w io.Writer, path, rename string) error {
	p, err := project.ImportProfile(path)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if rename != "" {
		p.Name = rename
	}
	if err := model.AddCustomProfile(p); err != nil {
		return err
	}
	if err := saveProfiles(); err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Imported profile %s", p.Name))
	return nil
}
