package runner

import (
	"errors"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/agent-runner/pkg/logger"
)

// Stop 向进程组发送停止信号，等待 GracePeriod；超时后发送一次 SIGKILL，
// 再等待 KillTimeout，仍未退出返回 *TerminationError。
// 幂等：已退出（包括被外部杀死）的句柄直接返回缓存的退出码，无副作用。
func (r *Runner) Stop(h *ProcessHandle) (int, error) {
	if h == nil || h.cmd == nil {
		return -1, ErrNotStarted
	}
	if code, ok := h.ExitCode(); ok {
		return code, nil
	}

	if err := h.transition(StateStopping); err != nil {
		if code, ok := h.ExitCode(); ok {
			return code, nil
		}
		// 上一次 Stop 已经升级过 SIGKILL 仍未成功，不再重复发信号
		if h.State() == StateStopping {
			return r.awaitExit(h, r.opts.KillTimeout, nil)
		}
		return -1, err
	}

	logger.Info("stopping agent",
		zap.String("handle", h.id),
		zap.Int("pid", h.pid),
		zap.String("signal", r.opts.StopSignal.String()),
		zap.Duration("grace_period", r.opts.GracePeriod))

	var sigErr error
	if err := signalProcess(h.cmd.Process, r.opts.StopSignal); err != nil && !errors.Is(err, os.ErrProcessDone) {
		sigErr = err
		logger.Warn("send stop signal failed", zap.String("handle", h.id), zap.Error(err))
	}

	grace := time.NewTimer(r.opts.GracePeriod)
	defer grace.Stop()
	select {
	case <-h.done:
		code, _ := h.ExitCode()
		return code, nil
	case <-grace.C:
	}

	// 升级为强制杀死，只做一次
	r.opts.Metrics.ObserveEscalation()
	logger.Warn("agent did not exit within grace period, sending SIGKILL",
		zap.String("handle", h.id),
		zap.Int("pid", h.pid),
		zap.Duration("grace_period", r.opts.GracePeriod))
	if err := signalProcess(h.cmd.Process, killSignal()); err != nil && !errors.Is(err, os.ErrProcessDone) {
		sigErr = multierr.Append(sigErr, err)
	}
	return r.awaitExit(h, r.opts.KillTimeout, sigErr)
}

func (r *Runner) awaitExit(h *ProcessHandle, wait time.Duration, cause error) (int, error) {
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-h.done:
		code, _ := h.ExitCode()
		return code, nil
	case <-t.C:
		err := &TerminationError{
			PID:         h.pid,
			GracePeriod: r.opts.GracePeriod,
			KillTimeout: wait,
			Err:         cause,
		}
		logger.Error("agent termination failed", zap.String("handle", h.id), zap.Error(err))
		return -1, err
	}
}
