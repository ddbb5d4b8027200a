package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -------------------------- Agent 进程采样指标 --------------------------
func (m *MetricFactory) NewAgentProcessCPUPercent() *prometheus.GaugeVec {
	return promauto.With(m.reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_process_cpu_percent",
			Help: "CPU usage percent of the supervised agent process",
		},
		[]string{"pid"},
	)
}

func (m *MetricFactory) NewAgentProcessRSSBytes() *prometheus.GaugeVec {
	return promauto.With(m.reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_process_rss_bytes",
			Help: "Resident memory of the supervised agent process",
		},
		[]string{"pid"},
	)
}

func (m *MetricFactory) NewAgentProcessThreads() *prometheus.GaugeVec {
	return promauto.With(m.reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_process_threads",
			Help: "Number of threads of the supervised agent process",
		},
		[]string{"pid"},
	)
}
