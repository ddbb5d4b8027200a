package signal

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/agent-runner/pkg/logger"
)

// NotifyContext 返回收到 SIGINT/SIGTERM 时取消的 ctx。
// 启动、就绪等待与运行期都使用它，信号到达时由调用方负责停止 Agent。
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// WaitForShutdown 阻塞直到 ctx 取消（通常来自 NotifyContext）或 done 关闭，然后执行 shutdownFunc
func WaitForShutdown(ctx context.Context, done <-chan struct{}, shutdownFunc func() error) error {
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal", zap.NamedError("cause", context.Cause(ctx)))
	case <-done:
		logger.Info("shutdown triggered without signal")
	}

	if shutdownFunc == nil {
		return nil
	}
	if err := shutdownFunc(); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("shutdown completed")
	return nil
}
