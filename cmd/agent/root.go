package agent

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExitError 携带 Agent 的退出码，由 Execute 转换为进程退出码
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("agent exited with code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewRootCmd 构建命令树
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agent-runner",
		Short:         "Start a monitoring agent, wait for its readiness log line, stop it and report the exit code",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "配置文件路径")
	// 注册分组 flag，名称与 YAML key 一致（runner.ready_timeout）
	initRunnerFlags(root)
	initServerFlags(root)
	initMonitorFlags(root)
	initLogFlags(root)

	root.AddCommand(newRunCmd(), newSmokeCmd())
	return root
}

func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		if ee.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ee.Err)
		}
		os.Exit(ee.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
