package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/agent-runner/cmd/server"
	"github.com/agent-runner/pkg/collector"
	"github.com/agent-runner/pkg/logger"
	"github.com/agent-runner/pkg/registers"
	"github.com/agent-runner/pkg/runner"
	"github.com/agent-runner/pkg/signal"
	"github.com/agent-runner/pkg/util"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <agent-config>",
		Short: "Start the agent, wait until ready and supervise it until SIGINT/SIGTERM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			echo, _ := cmd.Flags().GetBool("echo")
			return runAgent(cmd, args[0], echo)
		},
	}
	cmd.Flags().Bool("echo", false, "-> Echo new agent log lines into this log | 转发 Agent 日志")
	return cmd
}

func runAgent(cmd *cobra.Command, agentConfig string, echo bool) error {
	s, err := newSession(cmd, "run")
	if err != nil {
		return err
	}
	defer logger.Sync()

	util.PrintBanner(cmd.OutOrStdout(), "agent-runner", "ColorBlue")

	// 信号在启动、就绪等待与运行期间都会取消 ctx，由下面的路径停止 Agent
	ctx, cancel := signal.NotifyContext(cmd.Context())
	defer cancel()

	var handle atomic.Pointer[runner.ProcessHandle]
	var httpServer *server.Server
	if s.cfg.Server.Enable {
		httpServer = server.NewHTTPServer(&s.cfg.Server, s.registry, func() (string, bool) {
			h := handle.Load()
			if h == nil {
				return runner.StateStarting.String(), false
			}
			st := h.State()
			return st.String(), st == runner.StateRunning
		})
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("start HTTP server failed: %w", err)
		}
	}

	h, err := s.startReady(ctx, agentConfig)
	if err != nil {
		if httpServer != nil {
			_ = httpServer.Shutdown()
		}
		return err
	}
	handle.Store(h)

	sampler, err := registers.StartSampler(ctx, &s.cfg.Monitor, s.factory, h.PID())
	if err != nil {
		logger.Warn("agent process sampler disabled", zap.Error(err))
	}

	if echo {
		// 就绪之后日志流只由这里读取
		go func() {
			for line, err := range h.LogStream().Follow(ctx, s.cfg.Runner.PollInterval) {
				if err != nil {
					logger.Warn("follow agent log failed", zap.Error(err))
					return
				}
				logger.Info(line, zap.String("source", "agent"))
			}
		}()
	}

	var code int
	err = signal.WaitForShutdown(ctx, h.Done(), func() error {
		var errs error
		if sampler != nil {
			errs = multierr.Append(errs, shutdownSampler(sampler))
		}
		c, stopErr := s.runner.Stop(h)
		code = c
		errs = multierr.Append(errs, stopErr)
		if httpServer != nil {
			errs = multierr.Append(errs, httpServer.Shutdown())
		}
		return errs
	})
	if err != nil {
		return &ExitError{Code: exitCodeFor(code), Err: err}
	}
	logger.Info("agent runner finished", zap.Int("exit_code", code))
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func shutdownSampler(a collector.Agent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Shutdown(ctx)
}
