package enumerate

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/pkg/disk/enumeration"
	"github.com/stratastor/logger"
)

func NewEnumerateCmd() *cobra.Command {
	var (
		jsonOut bool
		root    string
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "enumerate",
		Short: "List block devices that currently carry a filesystem",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := config.GetConfig()
			log, err := logger.NewTag(config.NewLoggerConfig(rc), "enumerate")
			if err != nil {
				return err
			}

			prober, err := enumeration.NewProber(log, enumeration.ProberConfig{
				Kind:        rc.Enumeration.Prober,
				BlkidPath:   rc.Enumeration.BlkidPath,
				UdevadmPath: rc.Enumeration.UdevadmPath,
				UseSudo:     rc.Enumeration.UseSudo,
				Timeout:     rc.ProbeTimeout(),
			})
			if err != nil {
				return err
			}

			ecfg := &enumeration.Config{
				DeviceRoot: rc.Enumeration.DeviceRoot,
				Pattern:    rc.Enumeration.Pattern,
			}
			if root != "" {
				ecfg.DeviceRoot = root
			}
			if pattern != "" {
				ecfg.Pattern = pattern
			}

			enum, err := enumeration.NewEnumerator(log, afero.NewOsFs(), prober, ecfg)
			if err != nil {
				return err
			}

			volumes, err := enum.Enumerate(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(volumes)
			}
			return printTable(volumes)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print devices as JSON")
	cmd.Flags().StringVar(&root, "root", "", "Device directory to scan (default from config)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob pattern for candidate names (default from config)")
	return cmd
}

func printTable(volumes []enumeration.Volume) error {
	if len(volumes) == 0 {
		fmt.Println("No devices with a filesystem found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tFSTYPE\tUUID\tLABEL")
	for _, v := range volumes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Path, v.FSType, v.UUID, v.Label)
	}
	return w.Flush()
}
