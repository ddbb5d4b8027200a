package agent

import (
	"github.com/spf13/cobra"
)

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.Bool("monitor.enable", defaultCfg.Monitor.Enable, "-> Sample agent process CPU/memory | 采样 Agent 进程资源")
	f.Duration("monitor.interval", defaultCfg.Monitor.Interval, "-> Sampling interval | 采集间隔")
}
