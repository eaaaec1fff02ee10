package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdrpinto/roboroute/internal/config"
	"github.com/pdrpinto/roboroute/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "roboroute",
	Short: "Grid pathfinding relay for an EV3 robot",
	Long: `roboroute computes shortest 4-connected paths on occupancy grids and
relays paths and driving commands to a LEGO EV3 over HTTP.`,
	SilenceUsage: true,
}

// main registers the subcommands and global flags and runs the root command.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "", "override log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config and applies --log-level on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}
