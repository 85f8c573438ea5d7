// Package cli implements the pcbmill command line.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbmill/internal/logging"
	"github.com/piwi3910/pcbmill/internal/project"
)

var (
	// Global flags
	verbose      bool
	noColor      bool
	configPath   string
	profilesPath string

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for pcbmill.
var rootCmd = &cobra.Command{
	Use:     "pcbmill",
	Version: "dev",
	Short:   "PCB isolation milling toolpath generator",
	Long: `pcbmill turns the copper, outline and drill layers of a printed circuit board
into ordered CNC toolpaths and writes one G-code program per layer.`,
	Args:              cobra.NoArgs,
	RunE:              func(cmd *cobra.Command, args []string) error { return cmd.Help() },
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// setup installs the logger, color mode and custom profiles before any
// command runs.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	cfg, err := project.LoadAppConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if noColor || !cfg.ColorOutput {
		color.NoColor = true
	}

	n, err := project.RegisterCustomProfiles(profilesPath)
	if err != nil {
		logging.Logger().Warn("custom profiles not loaded", "path", profilesPath, "err", err)
	} else if n > 0 {
		logging.Logger().Debug("custom profiles loaded", "path", profilesPath, "count", n)
	}
	return nil
}

// customHelpFunc returns a custom help function that colors group titles
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")

		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log composition steps to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", project.DefaultConfigPath(), "Application config file")
	rootCmd.PersistentFlags().StringVar(&profilesPath, "profiles", project.DefaultProfilesPath(), "Custom G-code profiles file")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "milling",
		Title: "Milling:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the pcbmill version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Root().Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	millCmd.GroupID = "milling"
	layersCmd.GroupID = "milling"
	statsCmd.GroupID = "milling"
	initCmd.GroupID = "milling"
	rootCmd.AddCommand(millCmd)
	rootCmd.AddCommand(layersCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(initCmd)

	profilesCmd.GroupID = "cli-tooling"
	rootCmd.AddCommand(profilesCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
