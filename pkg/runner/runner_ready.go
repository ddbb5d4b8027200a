package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agent-runner/pkg/logger"
)

// WaitUntilReady 轮询日志流，对新追加的行应用 predicate。
// 首次匹配时返回 nil 并把句柄切换到 Running；timeout 内未匹配返回 *TimeoutError；
// 进程在匹配前退出返回 *ProcessExitedError。timeout <= 0 使用默认值。
// 超时只上报，不自动重试。
func (r *Runner) WaitUntilReady(ctx context.Context, h *ProcessHandle, predicate Predicate, timeout time.Duration) error {
	if h == nil {
		return ErrNotStarted
	}
	if predicate == nil {
		return errors.New("ready predicate is nil")
	}
	if timeout <= 0 {
		timeout = r.opts.ReadyTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	var wake *fileWakeup
	if r.opts.WatchFiles {
		wake = watchLogDir(h.stream.Pattern())
		defer wake.Close()
	}

	start := time.Now()
	logger.Debug("waiting for agent readiness",
		zap.String("handle", h.id),
		zap.String("predicate", describe(predicate)),
		zap.Duration("timeout", timeout),
		zap.Duration("poll_interval", r.opts.PollInterval))

	for {
		// 先取退出快照再读日志，保证退出前写入的内容一定被读到
		exited := h.exited()

		matched, line, err := scan(h.stream, predicate)
		if err != nil {
			return fmt.Errorf("read agent log %s: %w", h.stream.Pattern(), err)
		}
		if matched {
			elapsed := time.Since(start)
			if h.State() == StateStarting {
				// 与回收 goroutine 竞争时可能已经是 Exited，匹配结果依然有效
				_ = h.transition(StateRunning)
			}
			r.opts.Metrics.ObserveReady(elapsed)
			logger.Info("agent is ready",
				zap.String("handle", h.id),
				zap.Int("pid", h.pid),
				zap.String("line", line),
				zap.Duration("elapsed", elapsed))
			return nil
		}
		if exited {
			code, _ := h.ExitCode()
			return &ProcessExitedError{PID: h.pid, ExitCode: code}
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("wait for agent readiness: %w", err)
			}
			r.opts.Metrics.ObserveReadyTimeout()
			terr := &TimeoutError{
				HandleID:  h.id,
				LogGlob:   h.stream.Pattern(),
				Predicate: describe(predicate),
				Limit:     timeout,
				Elapsed:   time.Since(start),
			}
			logger.Warn("agent readiness timed out", zap.String("handle", h.id), zap.Error(terr))
			return terr
		case <-ticker.C:
		case <-wake.events():
		case <-h.done:
		}
	}
}

// scan 读取新增完整行，再检查未结束的尾行。
// 匹配行之后的行退回流中，之后 Follow 仍能读到。
func scan(s *LogStream, p Predicate) (bool, string, error) {
	lines, err := s.ReadLines()
	for i, l := range lines {
		if p.Match(l) {
			s.Unread(lines[i+1:])
			return true, l, nil
		}
	}
	if err != nil {
		return false, "", err
	}
	for _, l := range s.Pending() {
		if p.Match(l) {
			return true, l, nil
		}
	}
	return false, "", nil
}
