package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stratastor/blockwatch/config"
	"gopkg.in/yaml.v3"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage blockwatch configuration",
	}

	cmd.AddCommand(NewLoadConfigCmd())
	cmd.AddCommand(NewPrintConfigCmd())
	return cmd
}

func NewLoadConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load and validate the configuration file (see --config)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			fmt.Printf("Configuration loaded from: %s\n", config.GetLoadedConfigPath())
			if cfg == nil {
				return fmt.Errorf("no configuration loaded")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("Configuration is valid")
			return nil
		},
	}

	return cmd
}

func NewPrintConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the currently loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			if cfg == nil {
				return fmt.Errorf("no configuration loaded")
			}

			// Convert the config to YAML format
			ymlData, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config to YAML: %v", err)
			}

			fmt.Printf("Current Configuration:\n%s\n", string(ymlData))
			return nil
		},
	}

	return cmd
}
