package runner

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotStarted 句柄为空或进程从未启动
var ErrNotStarted = errors.New("agent process not started")

// LaunchError 启动失败：可执行文件不存在、配置文件无效或系统拒绝创建进程
type LaunchError struct {
	Binary     string
	ConfigPath string
	Reason     string
	Err        error
}

func (e *LaunchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("launch %s (config %s): %s", e.Binary, e.ConfigPath, e.Reason)
	}
	return fmt.Sprintf("launch %s (config %s): %s: %v", e.Binary, e.ConfigPath, e.Reason, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// TimeoutError 在超时时间内没有观察到就绪日志
type TimeoutError struct {
	HandleID  string
	LogGlob   string
	Predicate string
	Limit     time.Duration
	Elapsed   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %s not ready after %s (timeout %s): no line in %s matched %s",
		e.HandleID, e.Elapsed.Round(time.Millisecond), e.Limit, e.LogGlob, e.Predicate)
}

// Timeout 兼容 net.Error 风格的判断
func (e *TimeoutError) Timeout() bool { return true }

// TerminationError 优雅退出超时且 SIGKILL 之后进程仍未退出
type TerminationError struct {
	PID         int
	GracePeriod time.Duration
	KillTimeout time.Duration
	Err         error
}

func (e *TerminationError) Error() string {
	msg := fmt.Sprintf("agent pid %d did not exit within grace period %s and %s after SIGKILL",
		e.PID, e.GracePeriod, e.KillTimeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TerminationError) Unwrap() error { return e.Err }

// ProcessExitedError 等待就绪期间进程已经退出
type ProcessExitedError struct {
	PID      int
	ExitCode int
}

func (e *ProcessExitedError) Error() string {
	return fmt.Sprintf("agent pid %d exited with code %d before becoming ready", e.PID, e.ExitCode)
}

// InvalidTransitionError 非法的生命周期状态迁移
type InvalidTransitionError struct {
	From LifecycleState
	To   LifecycleState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition %s -> %s", e.From, e.To)
}
