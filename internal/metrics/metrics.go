// Package metrics exposes prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessed tracks job outcomes per queue. Outcome is one of
	// completed, retried, delayed, dropped.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockfeed_jobs_processed_total",
			Help: "Total number of queue jobs processed by outcome",
		},
		[]string{"queue", "outcome"},
	)

	// BlocksFetched tracks blocks dispatched to the divider per chain.
	BlocksFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockfeed_blocks_fetched_total",
			Help: "Total number of blocks fetched and dispatched",
		},
		[]string{"chain"},
	)

	// ChainLatestHeight tracks the chain head as last observed.
	ChainLatestHeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blockfeed_chain_latest_height",
			Help: "Latest block height reported by the chain",
		},
		[]string{"chain"},
	)

	// FetchedHeight tracks the latest height the fetcher dispatched.
	FetchedHeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blockfeed_fetched_height",
			Help: "Latest block height dispatched by the fetcher",
		},
		[]string{"chain"},
	)

	// Deliveries tracks delivery attempts per method. Outcome is one of
	// sent, rejected, failed.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockfeed_deliveries_total",
			Help: "Total number of delivery attempts by outcome",
		},
		[]string{"method", "outcome"},
	)

	// InvocationEntriesWritten tracks persisted invocation log rows.
	InvocationEntriesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blockfeed_invocation_entries_written_total",
			Help: "Total number of invocation log entries persisted",
		},
	)
)
