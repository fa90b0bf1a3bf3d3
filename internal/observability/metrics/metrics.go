// Package metrics exposes prometheus instruments for the billing engine.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	chargeAttempts     *prometheus.CounterVec
	chargeAmount       prometheus.Counter
	chargedBytes       prometheus.Counter
	settlements        *prometheus.CounterVec
	resellersSuspended prometheus.Counter
	configsDisabled    prometheus.Counter
	configsReenabled   *prometheus.CounterVec
	remoteCallFailures *prometheus.CounterVec
	jobRuns            *prometheus.CounterVec
	jobErrors          *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide metrics registered on the default
// prometheus registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		chargeAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netbill_charge_attempts_total",
			Help: "Charge attempts by outcome status and skip reason.",
		}, []string{"status", "reason"}),
		chargeAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "netbill_charged_amount_total",
			Help: "Total currency units debited from wallets.",
		}),
		chargedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "netbill_charged_bytes_total",
			Help: "Total usage bytes billed.",
		}),
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netbill_settlements_total",
			Help: "Final settlements by action and outcome status.",
		}, []string{"action", "status"}),
		resellersSuspended: factory.NewCounter(prometheus.CounterOpts{
			Name: "netbill_resellers_suspended_total",
			Help: "Resellers transitioned to suspended_wallet.",
		}),
		configsDisabled: factory.NewCounter(prometheus.CounterOpts{
			Name: "netbill_configs_disabled_total",
			Help: "Configs disabled by wallet suspension.",
		}),
		configsReenabled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netbill_configs_reenabled_total",
			Help: "Re-enable attempts for wallet-suspended configs by result.",
		}, []string{"result"}),
		remoteCallFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netbill_panel_call_failures_total",
			Help: "Failed provisioner calls by operation.",
		}, []string{"op"}),
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netbill_scheduler_job_runs_total",
			Help: "Scheduler job executions.",
		}, []string{"job"}),
		jobErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netbill_scheduler_job_errors_total",
			Help: "Scheduler job executions that returned an error.",
		}, []string{"job"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netbill_scheduler_job_duration_seconds",
			Help:    "Scheduler job wall time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}
}

func (m *Metrics) IncChargeAttempt(status, reason string) {
	if m == nil {
		return
	}
	m.chargeAttempts.WithLabelValues(status, reason).Inc()
}

func (m *Metrics) ObserveCharge(amount, bytes int64) {
	if m == nil {
		return
	}
	m.chargeAmount.Add(float64(amount))
	m.chargedBytes.Add(float64(bytes))
}

func (m *Metrics) IncSettlement(action, status string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(action, status).Inc()
}

func (m *Metrics) IncResellerSuspended() {
	if m == nil {
		return
	}
	m.resellersSuspended.Inc()
}

func (m *Metrics) IncConfigDisabled() {
	if m == nil {
		return
	}
	m.configsDisabled.Inc()
}

func (m *Metrics) IncConfigReenabled(result string) {
	if m == nil {
		return
	}
	m.configsReenabled.WithLabelValues(result).Inc()
}

func (m *Metrics) IncPanelCallFailure(op string) {
	if m == nil {
		return
	}
	m.remoteCallFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
