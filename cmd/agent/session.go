package agent

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/agent-runner/pkg/config"
	"github.com/agent-runner/pkg/logger"
	"github.com/agent-runner/pkg/metrics"
	"github.com/agent-runner/pkg/registers"
	"github.com/agent-runner/pkg/runner"
)

// session 一次命令执行所需的依赖
type session struct {
	cfg       *config.Config
	runner    *runner.Runner
	predicate runner.Predicate
	registry  *prometheus.Registry
	factory   *metrics.MetricFactory
}

// newSession 加载配置、初始化日志并创建 Runner
func newSession(cmd *cobra.Command, component string) (*session, error) {
	cfg, err := config.LoadConfigWithCli(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Options()); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefaultComponent(component)
	logger.Info("log initialization successful",
		zap.String("path", cfg.Log.Path),
		zap.String("level", cfg.Log.Level),
		zap.String("format", cfg.Log.Format))

	registry, factory := registers.InitPromRegistry(true)

	opts, err := cfg.Runner.Options()
	if err != nil {
		return nil, err
	}
	opts.Metrics = factory.NewRunnerMetrics()
	r, err := runner.New(opts)
	if err != nil {
		return nil, fmt.Errorf("create runner: %w", err)
	}
	pred, err := cfg.Runner.ReadyPredicate()
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, runner: r, predicate: pred, registry: registry, factory: factory}, nil
}

// startReady 启动 Agent 并等待就绪；等待失败时停止 Agent 再返回错误
func (s *session) startReady(ctx context.Context, agentConfig string) (*runner.ProcessHandle, error) {
	h, err := s.runner.Start(ctx, agentConfig)
	if err != nil {
		return nil, err
	}
	if err := s.runner.WaitUntilReady(ctx, h, s.predicate, s.cfg.Runner.ReadyTimeout); err != nil {
		code, stopErr := s.runner.Stop(h)
		if stopErr != nil {
			return nil, multierr.Combine(err, stopErr)
		}
		return nil, &ExitError{Code: exitCodeFor(code), Err: err}
	}
	return h, nil
}

// exitCodeFor Agent 以 0 退出但流程失败时仍返回非零
func exitCodeFor(code int) int {
	if code <= 0 {
		return 1
	}
	return code
}
