// Package metrics exposes Prometheus instrumentation for netssh-go.
// Metrics live on a package-local registry so consumers opt in by mounting
// Registry() rather than having collectors injected into the default one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	// ConnectionsOpened counts successful SSH connections by device type.
	ConnectionsOpened = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netssh",
		Name:      "connections_opened_total",
		Help:      "Successful SSH connections by device type.",
	}, []string{"device_type"})

	// ConnectionsFailed counts failed connection attempts by failure kind.
	ConnectionsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netssh",
		Name:      "connections_failed_total",
		Help:      "Failed SSH connection attempts by failure kind.",
	}, []string{"kind"})

	// CommandsExecuted counts commands by terminal status.
	CommandsExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netssh",
		Name:      "commands_total",
		Help:      "Commands executed by result status.",
	}, []string{"status"})

	// PermitsInFlight tracks outstanding concurrency permits.
	PermitsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "netssh",
		Name:      "permits_in_flight",
		Help:      "Concurrency permits currently held by workers.",
	})

	// CachedConnections tracks entries in the parallel manager's cache.
	CachedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "netssh",
		Name:      "cached_connections",
		Help:      "Connections held in the reuse cache.",
	})
)

func init() {
	registry.MustRegister(
		ConnectionsOpened,
		ConnectionsFailed,
		CommandsExecuted,
		PermitsInFlight,
		CachedConnections,
	)
}

// Registry returns the netssh-go metrics registry for scraping.
func Registry() *prometheus.Registry {
	return registry
}
