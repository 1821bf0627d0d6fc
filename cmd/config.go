package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"chatdispatch/pkg/config"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.json"

var forceConfigInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Long:  "Writes the default configuration to path (config.json by default). A .yaml or .yml path writes YAML.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := defaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}

		if err := writeDefaultConfig(path, forceConfigInit); err != nil {
			fmt.Printf("failed to write config: %v\n", err)
			return
		}

		fmt.Printf("wrote default configuration to %s\n", path)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVarP(&forceConfigInit, "force", "f", false, "overwrite an existing file")
}

func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}

	return config.Default().SaveFile(path)
}
