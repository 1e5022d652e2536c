// Package metrics provides Prometheus instrumentation for the wagering ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StakesPlaced counts accepted stakes, partitioned by scope type.
	StakesPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tipleague_stakes_placed_total",
		Help: "Total number of accepted stakes",
	}, []string{"scope_type"})

	// StakesRejected counts rejected stakes, partitioned by rejection reason.
	StakesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tipleague_stakes_rejected_total",
		Help: "Total number of rejected stakes",
	}, []string{"reason"})

	// SettlementsApplied counts settlements posted to the ledger, by outcome.
	SettlementsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tipleague_settlements_applied_total",
		Help: "Total number of ticket settlements applied",
	}, []string{"outcome"})

	// SettlementsDuplicate counts settlements skipped by the idempotence guard.
	SettlementsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tipleague_settlements_duplicate_total",
		Help: "Settlement attempts skipped because the ticket was already settled",
	})

	// LedgerWriteConflicts counts optimistic-concurrency collisions on ledger writes.
	LedgerWriteConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tipleague_ledger_write_conflicts_total",
		Help: "Ledger write conflicts (retried internally)",
	})

	// ScopesBlocked counts stake attempts that hit a blocked scope.
	ScopesBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tipleague_scopes_blocked_total",
		Help: "Stake attempts rejected because the scope is blocked",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tipleague_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// Handler returns the Prometheus metrics HTTP handler, mounted on /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
