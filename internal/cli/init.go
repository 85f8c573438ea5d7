package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbmill/internal/project"
)

var initName string

var initCmd = &cobra.Command{
	Use:   "init <project.toml>",
	Short: "Write a starter project file",
	Long: `Write a project file in millimetres with the default tools for the front,
back, outline and drill layers. Edit the layer file names and tool settings
before milling.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		name := initName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if err := project.WriteTemplate(path, name); err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Created %s", path))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default: file name)")
}
