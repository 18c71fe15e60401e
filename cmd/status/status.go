/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in> 
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package status

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stratastor/blockwatch/config"
	"github.com/stratastor/blockwatch/pkg/health"
	"github.com/stratastor/logger"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check blockwatch server status",
		Run: func(cmd *cobra.Command, args []string) {
			pidFile := config.GetPIDFilePath()
			pid, running := readPID(pidFile)
			if !running {
				fmt.Println("Blockwatch server is not running")
				return
			}
			fmt.Printf("Blockwatch server is running (pid %d)\n", pid)

			cfg := config.GetConfig()
			log, err := logger.NewTag(config.NewLoggerConfig(cfg), "status")
			if err != nil {
				return
			}
			stats, err := health.NewHealthChecker(log, cfg).Stats(cmd.Context())
			if err != nil {
				fmt.Println("Watcher statistics unavailable:", err)
				return
			}

			fmt.Printf("Watcher: %s (%s)\n", stats.WatcherID, stats.State)
			fmt.Printf("Ticks: %d  Received: %d  Delivered: %d  Ignored: %d  Filtered: %d\n",
				stats.Stats.Ticks, stats.Stats.EventsReceived, stats.Stats.EventsDelivered,
				stats.Stats.EventsIgnored, stats.Stats.EventsFiltered)
			fmt.Printf("Poll errors: %d  Receive errors: %d\n",
				stats.Stats.PollErrors, stats.Stats.ReceiveErrors)
			fmt.Printf("Buffered events: %d (last seq %d)\n", stats.Buffered, stats.LastSeq)
			if stats.Uptime != "" {
				fmt.Printf("Uptime: %s\n", stats.Uptime)
			}
		},
	}
}

func readPID(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	return pid, proc.Signal(syscall.Signal(0)) == nil
}
