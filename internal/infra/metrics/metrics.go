package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// jobRunsTotal counts birthday job ticks by terminal outcome.
	// Labels:
	// - outcome: skipped | no_birthdays | no_recipients | completed | failed | busy
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthday",
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Birthday job runs by outcome.",
		},
		[]string{"outcome"},
	)

	// emailsTotal counts individual reminder deliveries.
	// Labels:
	// - result: sent | failed
	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthday",
			Subsystem: "mail",
			Name:      "emails_total",
			Help:      "Reminder emails by delivery result.",
		},
		[]string{"result"},
	)

	ledgerWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "birthday",
			Subsystem: "ledger",
			Name:      "write_failures_total",
			Help:      "Runs whose ledger record could not be written after all attempts.",
		},
	)
)

// IncJobRun increments the job outcome counter.
func IncJobRun(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	jobRunsTotal.WithLabelValues(outcome).Inc()
}

// AddEmails adds n deliveries with the given result.
func AddEmails(result string, n int) {
	if n <= 0 {
		return
	}
	emailsTotal.WithLabelValues(result).Add(float64(n))
}

func IncLedgerWriteFailure() {
	ledgerWriteFailuresTotal.Inc()
}
