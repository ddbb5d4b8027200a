package collector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/agent-runner/pkg/logger"
	"github.com/agent-runner/pkg/metrics"
)

// ProcessCollector 采样被管理 Agent 进程的 CPU、常驻内存与线程数
type ProcessCollector struct {
	name string
	pid  int32
	proc *process.Process

	cpuPercent *prometheus.GaugeVec
	rssBytes   *prometheus.GaugeVec
	threads    *prometheus.GaugeVec

	collectErrors   *prometheus.CounterVec
	collectDuration *prometheus.HistogramVec
}

// NewProcessCollector 创建进程采集器，指标通过 factory 注册
func NewProcessCollector(pid int, factory *metrics.MetricFactory) *ProcessCollector {
	return &ProcessCollector{
		name:            "agent-process",
		pid:             int32(pid),
		cpuPercent:      factory.NewAgentProcessCPUPercent(),
		rssBytes:        factory.NewAgentProcessRSSBytes(),
		threads:         factory.NewAgentProcessThreads(),
		collectErrors:   factory.NewAgentCollectErrorsTotal(),
		collectDuration: factory.NewAgentCollectDurationSeconds(),
	}
}

// Name 返回采集器名称
func (c *ProcessCollector) Name() string { return c.name }

// Init 检查进程存在
func (c *ProcessCollector) Init() error {
	proc, err := process.NewProcess(c.pid)
	if err != nil {
		return fmt.Errorf("open process %d: %w", c.pid, err)
	}
	c.proc = proc
	return nil
}

// Collect 执行一次采样；CPU 使用率为两次采样之间的增量，首次为自启动以来的平均值
func (c *ProcessCollector) Collect(ctx context.Context) error {
	if c.proc == nil {
		return fmt.Errorf("collector %s not initialized", c.name)
	}
	start := time.Now()
	defer func() {
		c.collectDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	pid := strconv.Itoa(int(c.pid))

	cpu, err := c.proc.PercentWithContext(ctx, 0)
	if err != nil {
		c.collectErrors.WithLabelValues(c.name).Inc()
		return fmt.Errorf("get cpu percent of %d: %w", c.pid, err)
	}
	c.cpuPercent.WithLabelValues(pid).Set(cpu)

	mem, err := c.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		c.collectErrors.WithLabelValues(c.name).Inc()
		return fmt.Errorf("get memory info of %d: %w", c.pid, err)
	}
	c.rssBytes.WithLabelValues(pid).Set(float64(mem.RSS))

	n, err := c.proc.NumThreadsWithContext(ctx)
	if err != nil {
		// 部分平台不支持，只记录
		c.collectErrors.WithLabelValues(c.name).Inc()
		logger.Debug("get thread count failed", zap.Int32("pid", c.pid), zap.Error(err))
	} else {
		c.threads.WithLabelValues(pid).Set(float64(n))
	}

	logger.Debug("collected agent process metrics",
		zap.Int32("pid", c.pid),
		zap.Float64("cpu_percent", cpu),
		zap.Uint64("rss", mem.RSS))
	return nil
}

// Close 删除该 PID 的时间序列，避免进程退出后仍暴露旧值
func (c *ProcessCollector) Close() error {
	pid := strconv.Itoa(int(c.pid))
	c.cpuPercent.DeleteLabelValues(pid)
	c.rssBytes.DeleteLabelValues(pid)
	c.threads.DeleteLabelValues(pid)
	return nil
}
