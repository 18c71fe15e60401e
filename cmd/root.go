package cmd

import (
	"github.com/spf13/cobra"
	"github.com/stratastor/blockwatch/cmd/config"
	"github.com/stratastor/blockwatch/cmd/enumerate"
	"github.com/stratastor/blockwatch/cmd/health"
	"github.com/stratastor/blockwatch/cmd/logs"
	"github.com/stratastor/blockwatch/cmd/serve"
	"github.com/stratastor/blockwatch/cmd/status"
	"github.com/stratastor/blockwatch/cmd/version"
	"github.com/stratastor/blockwatch/cmd/watch"
	cfg "github.com/stratastor/blockwatch/config"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "blockwatch",
		Short: "Blockwatch: block device hotplug watcher",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Explicit path wins over BLOCKWATCH_CONFIG and the system file
			_ = cfg.LoadConfig(configPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")

	rootCmd.AddCommand(watch.NewWatchCmd())
	rootCmd.AddCommand(enumerate.NewEnumerateCmd())
	rootCmd.AddCommand(serve.NewServeCmd())
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(health.NewHealthCmd())
	rootCmd.AddCommand(status.NewStatusCmd())
	rootCmd.AddCommand(logs.NewLogsCmd())
	rootCmd.AddCommand(config.NewConfigCmd())

	return rootCmd
}
