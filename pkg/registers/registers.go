package registers

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/agent-runner/pkg/collector"
	"github.com/agent-runner/pkg/config"
	"github.com/agent-runner/pkg/logger"
	"github.com/agent-runner/pkg/metrics"
)

// Module 可开关的采集器定义
type Module struct {
	Enabled bool
	Name    string
	NewFunc func() collector.Collector
}

// InitPromRegistry 返回值
// promReg	*prometheus.Registry	Prometheus 指标注册器，用于 HTTP /metrics 暴露或单元测试
// factory	*metrics.MetricFactory	基于该注册器的指标工厂
func InitPromRegistry(enableProcess bool) (*prometheus.Registry, *metrics.MetricFactory) {
	promReg := prometheus.NewRegistry()
	// 仅注册本进程指标（可选），不注册Go指标
	if enableProcess {
		promReg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	return promReg, metrics.NewMetricFactory(metrics.NewPromRegistry(promReg))
}

// StartSampler 为已启动的 Agent 进程创建采集器并启动采集循环。
// monitor.enable 为 false 时返回 nil, nil。
func StartSampler(ctx context.Context, cfg *config.MonitorConfig, factory *metrics.MetricFactory, pid int) (collector.Agent, error) {
	if !cfg.Enable {
		return nil, nil
	}
	agent := collector.NewRegistry(cfg.Interval)
	registered, err := RegisterCollectors(agent, cfg, factory, pid)
	if err != nil {
		return nil, err
	}
	if err := agent.Start(ctx); err != nil {
		return nil, fmt.Errorf("start sampler: %w", err)
	}
	logger.Info("agent process sampler started",
		zap.Int("pid", pid),
		zap.Strings("collectors", registered),
		zap.Duration("interval", cfg.Interval))
	return agent, nil
}

// RegisterCollectors 采集器注册统一入口，新增采集器只需在 modules 列表添加一条
func RegisterCollectors(agent collector.Agent, cfg *config.MonitorConfig, factory *metrics.MetricFactory, pid int) ([]string, error) {
	modules := []Module{
		{
			Enabled: cfg.Enable,
			Name:    "agent-process",
			NewFunc: func() collector.Collector {
				return collector.NewProcessCollector(pid, factory)
			},
		},
	}

	var names []string
	for _, m := range modules {
		if !m.Enabled {
			continue
		}
		agent.Register(m.NewFunc())
		names = append(names, m.Name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no collector enabled")
	}
	logger.Debug("collectors registered", zap.String("names", strings.Join(names, ",")))
	return names, nil
}
