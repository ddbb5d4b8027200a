package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunnerMetrics Agent 生命周期指标，nil 接收者上的方法均为空操作
type RunnerMetrics struct {
	Starts        *prometheus.CounterVec
	ReadyDuration prometheus.Histogram
	ReadyTimeouts prometheus.Counter
	Escalations   prometheus.Counter
	ExitCode      prometheus.Gauge
	State         prometheus.Gauge
}

// NewRunnerMetrics 创建并注册全部生命周期指标
func (m *MetricFactory) NewRunnerMetrics() *RunnerMetrics {
	rm := &RunnerMetrics{
		Starts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_runner_starts_total",
			Help: "Agent launch attempts by result",
		}, []string{"result"}),
		ReadyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_runner_ready_duration_seconds",
			Help:    "Time from wait start until the readiness line was observed",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 0.05s ~ 25.6s
		}),
		ReadyTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_runner_ready_timeouts_total",
			Help: "Readiness waits that timed out",
		}),
		Escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_runner_stop_escalations_total",
			Help: "Stops that needed SIGKILL after the grace period",
		}),
		ExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agent_runner_exit_code",
			Help: "Exit code of the last exited agent",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agent_runner_state",
			Help: "Lifecycle state of the current agent (0 not_started .. 4 exited)",
		}),
	}
	m.reg.MustRegister(rm.Starts, rm.ReadyDuration, rm.ReadyTimeouts, rm.Escalations, rm.ExitCode, rm.State)
	return rm
}

func (rm *RunnerMetrics) ObserveStart(ok bool) {
	if rm == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	rm.Starts.WithLabelValues(result).Inc()
}

func (rm *RunnerMetrics) ObserveReady(d time.Duration) {
	if rm == nil {
		return
	}
	rm.ReadyDuration.Observe(d.Seconds())
}

func (rm *RunnerMetrics) ObserveReadyTimeout() {
	if rm == nil {
		return
	}
	rm.ReadyTimeouts.Inc()
}

func (rm *RunnerMetrics) ObserveEscalation() {
	if rm == nil {
		return
	}
	rm.Escalations.Inc()
}

func (rm *RunnerMetrics) SetExitCode(code int) {
	if rm == nil {
		return
	}
	rm.ExitCode.Set(float64(code))
}

func (rm *RunnerMetrics) SetState(state int) {
	if rm == nil {
		return
	}
	rm.State.Set(float64(state))
}
