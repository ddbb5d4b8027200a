package runner

import "fmt"

// LifecycleState Agent 进程生命周期状态，只能单调前进，Exited 为终态
type LifecycleState int

const (
	StateNotStarted LifecycleState = iota
	StateStarting
	StateRunning
	StateStopping
	StateExited
)

func (s LifecycleState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal 是否为终态
func (s LifecycleState) Terminal() bool {
	return s == StateExited
}

// CanTransition 状态不回退、不重复进入；NotStarted 只能进入 Starting
func (s LifecycleState) CanTransition(to LifecycleState) bool {
	switch {
	case s.Terminal():
		return false
	case s == StateNotStarted:
		return to == StateStarting
	default:
		return to > s && to <= StateExited
	}
}
