//go:build !unix

package runner

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr { return nil }

func killSignal() os.Signal { return os.Kill }

func signalProcess(proc *os.Process, sig os.Signal) error {
	return proc.Signal(sig)
}

func exitCodeOf(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}

// ParseSignal 非 unix 平台只支持 INT 与 KILL
func ParseSignal(name string) (os.Signal, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "SIG") {
	case "INT", "TERM":
		return os.Interrupt, nil
	case "KILL":
		return os.Kill, nil
	}
	return nil, fmt.Errorf("unsupported signal %q on this platform", name)
}
