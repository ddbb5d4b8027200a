package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/agent-runner/pkg/logger"
)

// AgentImpl 实现 Agent 接口，按固定间隔驱动所有已注册的采集器
type AgentImpl struct {
	collectors []Collector
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	mu         sync.Mutex
}

// NewRegistry 创建采集器注册器
func NewRegistry(interval time.Duration) *AgentImpl {
	ctx, cancel := context.WithCancel(context.Background())
	return &AgentImpl{
		collectors: make([]Collector, 0),
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register 注册采集器
func (r *AgentImpl) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

func (r *AgentImpl) snapshot() []Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Collector(nil), r.collectors...)
}

// InitAll 依次初始化，遇到第一个失败即返回
func (r *AgentImpl) InitAll() error {
	for _, coll := range r.snapshot() {
		if err := coll.Init(); err != nil {
			return fmt.Errorf("collector %s init failed: %w", coll.Name(), err)
		}
		logger.Debug("collector initialized successfully", zap.String("name", coll.Name()))
	}
	return nil
}

// Start 初始化全部采集器并启动采集循环（非阻塞）。
// ctx 结束或调用 Shutdown 时循环退出。
func (r *AgentImpl) Start(ctx context.Context) error {
	if err := r.InitAll(); err != nil {
		close(r.done)
		return err
	}

	ticker := time.NewTicker(r.interval)
	logger.Debug("collector registry started",
		zap.Duration("interval", r.interval),
		zap.Int("registered_collectors", len(r.snapshot())))

	go func() {
		defer close(r.done)
		defer ticker.Stop()

		// 首次采集（失败仅警告）
		if err := r.CollectAll(ctx); err != nil {
			logger.Warn("first collection failed", zap.Error(err))
		}
		for {
			select {
			case <-ticker.C:
				_ = r.CollectAll(ctx) // 单采集器失败不影响整体
			case <-ctx.Done():
				logger.Debug("collector registry stopped by external context", zap.Error(ctx.Err()))
				return
			case <-r.ctx.Done():
				logger.Debug("collector registry stopped by shutdown")
				return
			}
		}
	}()
	return nil
}

// Shutdown 停止采集循环并关闭全部采集器
func (r *AgentImpl) Shutdown(ctx context.Context) error {
	r.cancel()
	select {
	case <-r.done:
	case <-ctx.Done():
		return fmt.Errorf("wait collector loop: %w", ctx.Err())
	}
	return r.CloseAll()
}

// CollectAll 执行一轮采集，返回所有失败的合并错误
func (r *AgentImpl) CollectAll(ctx context.Context) error {
	var errs error
	for _, c := range r.snapshot() {
		if err := c.Collect(ctx); err != nil {
			logger.Warn("collection failed", zap.String("name", c.Name()), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errs
}

// CloseAll 关闭全部采集器，错误合并返回，不阻断整体关闭
func (r *AgentImpl) CloseAll() error {
	var errs error
	for _, c := range r.snapshot() {
		if err := c.Close(); err != nil {
			logger.Error("failed to close collector", zap.String("name", c.Name()), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		logger.Debug("collector closed successfully", zap.String("name", c.Name()))
	}
	return errs
}
