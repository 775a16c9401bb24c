package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scp_exemption_records_processed_total",
		Help: "Total number of stream records fully processed.",
	})

	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scp_exemption_records_skipped_total",
		Help: "Total number of records carrying no actionable intent.",
	})

	ExemptionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scp_exemption_automations_started_total",
		Help: "Total number of exemption automation submissions, labelled by outcome.",
	}, []string{"outcome"})

	CleanupsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scp_exemption_cleanups_scheduled_total",
		Help: "Total number of deferred cleanup automations scheduled.",
	})

	BatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scp_exemption_batch_failures_total",
		Help: "Total number of batches aborted by an unrecoverable error.",
	})
)
