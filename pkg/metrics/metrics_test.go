package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRunnerMetricsIsNoop(t *testing.T) {
	var rm *RunnerMetrics
	assert.NotPanics(t, func() {
		rm.ObserveStart(true)
		rm.ObserveReady(time.Second)
		rm.ObserveReadyTimeout()
		rm.ObserveEscalation()
		rm.SetExitCode(137)
		rm.SetState(4)
	})
}

func TestRunnerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rm := NewMetricFactory(NewPromRegistry(reg)).NewRunnerMetrics()

	rm.ObserveStart(true)
	rm.ObserveStart(false)
	rm.ObserveStart(false)
	rm.ObserveReady(300 * time.Millisecond)
	rm.ObserveEscalation()
	rm.SetExitCode(137)
	rm.SetState(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(rm.Starts.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rm.Starts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.Escalations))
	assert.Equal(t, 0.0, testutil.ToFloat64(rm.ReadyTimeouts))

	expected := `
# HELP agent_runner_exit_code Exit code of the last exited agent
# TYPE agent_runner_exit_code gauge
agent_runner_exit_code 137
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "agent_runner_exit_code"))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	f := NewMetricFactory(NewPromRegistry(prometheus.NewRegistry()))
	f.NewAgentCollectErrorsTotal()
	assert.Panics(t, func() { f.NewAgentCollectErrorsTotal() })
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewPromRegistry(prometheus.NewRegistry())
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "x_test_gauge", Help: "x"})
	require.NoError(t, reg.Register(g))
	assert.True(t, reg.Unregister(g))
	assert.False(t, reg.Unregister(g))
}
