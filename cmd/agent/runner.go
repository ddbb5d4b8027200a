package agent

import (
	"github.com/spf13/cobra"
)

func initRunnerFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	p := "runner."

	f.String(p+"binary", defaultCfg.Runner.Binary, "-> Agent executable (looked up in PATH) | Agent 可执行文件")
	f.StringSlice(p+"args", defaultCfg.Runner.Args, "-> Extra arguments before the config argument | 额外参数")
	f.String(p+"config_flag", defaultCfg.Runner.ConfigFlag, "-> Flag used to pass the config file, empty for positional | 配置文件参数名")
	f.StringSlice(p+"env", defaultCfg.Runner.Env, "-> Extra KEY=VALUE environment | 额外环境变量")
	f.String(p+"work_dir", defaultCfg.Runner.WorkDir, "-> Agent working directory | 工作目录")
	f.String(p+"log_glob", defaultCfg.Runner.LogGlob, "-> Glob of agent log files | 日志文件 glob")
	f.String(p+"output_path", defaultCfg.Runner.OutputPath, "-> File receiving agent stdout/stderr | 标准输出文件")
	f.String(p+"ready_pattern", defaultCfg.Runner.ReadyPattern, "-> Readiness log pattern | 就绪日志匹配串")
	f.String(p+"ready_match", defaultCfg.Runner.ReadyMatch, "-> Pattern kind [contains,regexp] | 匹配方式")
	f.Duration(p+"poll_interval", defaultCfg.Runner.PollInterval, "-> Log poll interval | 轮询间隔")
	f.Duration(p+"ready_timeout", defaultCfg.Runner.ReadyTimeout, "-> Readiness timeout | 就绪超时")
	f.Duration(p+"grace_period", defaultCfg.Runner.GracePeriod, "-> Graceful stop period before SIGKILL | 优雅退出时间")
	f.Duration(p+"kill_timeout", defaultCfg.Runner.KillTimeout, "-> Wait after SIGKILL | SIGKILL 后等待时间")
	f.String(p+"stop_signal", defaultCfg.Runner.StopSignal, "-> Graceful stop signal | 优雅退出信号")
	f.Bool(p+"watch_files", defaultCfg.Runner.WatchFiles, "-> Wake the poll loop on file events | 文件事件唤醒")
	f.Int(p+"expect_exit_code", defaultCfg.Runner.ExpectExitCode, "-> Exit code expected by smoke | smoke 期望退出码")
}
