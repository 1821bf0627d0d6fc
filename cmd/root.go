package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"chatdispatch/pkg/config"
	"chatdispatch/pkg/logger"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chatdispatch",
	Short: "Typed chat message dispatcher",
	Long:  "Routes typed chat messages through a middleware chain to priority-ordered handlers, from the command line, an interactive console or chat channels.",
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (JSON or YAML); defaults to $CHATDISPATCH_CONFIG or ./config.json")
}

// loadConfig reads --config when set, otherwise the default search path.
func loadConfig() (*config.Config, error) {
	if path := strings.TrimSpace(configPath); path != "" {
		return config.LoadFile(path)
	}

	return config.LoadConfig()
}

// bootstrap loads configuration and installs the process logger.
func bootstrap(component string) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	return cfg, logger.Component(appLogger, component), nil
}
