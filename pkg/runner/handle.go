package runner

import (
	"os/exec"
	"sync"
	"time"
)

// Status 句柄状态快照
type Status struct {
	State     LifecycleState
	ExitCode  *int
	StartTime time.Time
	EndTime   *time.Time
}

// ProcessHandle 一个已启动的 Agent 进程实例
type ProcessHandle struct {
	id         string
	pid        int
	configPath string
	startedAt  time.Time
	stream     *LogStream
	cmd        *exec.Cmd
	done       chan struct{}

	mu       sync.RWMutex
	state    LifecycleState
	exitCode int
	endedAt  time.Time

	onTransition func(h *ProcessHandle, from, to LifecycleState)
}

func newHandle(id, configPath string, stream *LogStream) *ProcessHandle {
	return &ProcessHandle{
		id:         id,
		configPath: configPath,
		stream:     stream,
		done:       make(chan struct{}),
		state:      StateNotStarted,
		exitCode:   -1,
	}
}

// ID 句柄唯一标识
func (h *ProcessHandle) ID() string { return h.id }

// PID 操作系统进程号
func (h *ProcessHandle) PID() int { return h.pid }

// ConfigPath 启动时使用的配置文件（绝对路径）
func (h *ProcessHandle) ConfigPath() string { return h.configPath }

// StartedAt 启动时间
func (h *ProcessHandle) StartedAt() time.Time { return h.startedAt }

// LogStream 句柄独占的日志流
func (h *ProcessHandle) LogStream() *LogStream { return h.stream }

// Done 进程退出（被回收）后关闭
func (h *ProcessHandle) Done() <-chan struct{} { return h.done }

// State 当前生命周期状态
func (h *ProcessHandle) State() LifecycleState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// ExitCode 退出码，进程未退出时 ok 为 false
func (h *ProcessHandle) ExitCode() (code int, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state != StateExited {
		return -1, false
	}
	return h.exitCode, true
}

// Status 返回状态快照
func (h *ProcessHandle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st := Status{State: h.state, StartTime: h.startedAt}
	if h.state == StateExited {
		code := h.exitCode
		st.ExitCode = &code
		end := h.endedAt
		st.EndTime = &end
	}
	return st
}

func (h *ProcessHandle) transition(to LifecycleState) error {
	h.mu.Lock()
	from := h.state
	if !from.CanTransition(to) {
		h.mu.Unlock()
		return &InvalidTransitionError{From: from, To: to}
	}
	h.state = to
	h.mu.Unlock()

	if h.onTransition != nil {
		h.onTransition(h, from, to)
	}
	return nil
}

// markExited 由回收 goroutine 调用，记录退出码并进入终态
func (h *ProcessHandle) markExited(code int) {
	h.mu.Lock()
	from := h.state
	h.exitCode = code
	h.endedAt = time.Now()
	h.state = StateExited
	h.mu.Unlock()

	if h.onTransition != nil && from != StateExited {
		h.onTransition(h, from, StateExited)
	}
	close(h.done)
}

func (h *ProcessHandle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
