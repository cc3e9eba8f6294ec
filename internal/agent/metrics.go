package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	agentCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestra",
		Name:      "agent_calls_total",
		Help:      "Downstream agent calls by agent, tool and outcome.",
	}, []string{"agent", "tool", "outcome"})

	agentCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orchestra",
		Name:      "agent_call_duration_seconds",
		Help:      "Downstream agent call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"agent", "tool"})
)

func observeAgentCall(agent, tool string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	agentCallsTotal.WithLabelValues(agent, tool, outcome).Inc()
	agentCallDuration.WithLabelValues(agent, tool).Observe(elapsed.Seconds())
}
