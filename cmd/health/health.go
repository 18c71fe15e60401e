package health

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/pkg/health"
	"github.com/stratastor/logger"
)

func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check blockwatch health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			log, err := logger.NewTag(config.NewLoggerConfig(cfg), "health")
			if err != nil {
				return err
			}

			checker := health.NewHealthChecker(log, cfg)
			ret, err := checker.CheckHealth(cmd.Context())
			if err != nil {
				fmt.Println("Health check failed: ", err)
				return nil
			}
			fmt.Printf("Status: %s\nVersion: %s\nWatcher: %s\n", ret.Status, ret.Version, ret.Watcher)
			return nil
		},
	}
}
