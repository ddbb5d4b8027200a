//go:build unix

package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr 新进程组，方便把 Agent 及其子进程作为整体发送信号
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func killSignal() os.Signal { return unix.SIGKILL }

// signalProcess 优先发给整个进程组，失败时退回单进程
func signalProcess(proc *os.Process, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return proc.Signal(sig)
	}
	err := unix.Kill(-proc.Pid, s)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return proc.Signal(sig)
}

// exitCodeOf 被信号 N 杀死时返回 128+N（与 shell 一致）
func exitCodeOf(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

// ParseSignal 解析信号名：SIGTERM / TERM / 15
func ParseSignal(name string) (os.Signal, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return nil, fmt.Errorf("empty signal name")
	}
	if num, err := strconv.Atoi(n); err == nil {
		if num <= 0 || unix.SignalName(syscall.Signal(num)) == "" {
			return nil, fmt.Errorf("unknown signal number %d", num)
		}
		return syscall.Signal(num), nil
	}
	if !strings.HasPrefix(n, "SIG") {
		n = "SIG" + n
	}
	sig := unix.SignalNum(n)
	if sig == 0 {
		return nil, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}
