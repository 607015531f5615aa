// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame directions.
const (
	DirOutbound = "tap_to_udp"
	DirInbound  = "udp_to_tap"
)

// Frame outcomes.
const (
	OutcomeUnicast   = "unicast"
	OutcomeBroadcast = "broadcast"
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped_policy"
	OutcomeTooShort  = "too_short"
	OutcomeTooLarge  = "too_large"
	OutcomeError     = "error"
)

var (
	// FramesTotal counts frames by direction and what became of them
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfw_frames_total",
			Help: "Total number of frames handled by the bridge",
		},
		[]string{"direction", "outcome"},
	)

	// BytesTotal counts frame bytes successfully forwarded
	BytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfw_bytes_total",
			Help: "Total number of frame bytes forwarded",
		},
		[]string{"direction"},
	)

	// InboundVerdictsTotal counts session tracker verdicts for inbound frames
	InboundVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfw_inbound_verdicts_total",
			Help: "Total number of inbound frames by session verdict",
		},
		[]string{"verdict"},
	)

	// LearnEventsTotal counts learning table changes
	LearnEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfw_learn_events_total",
			Help: "Total number of learning table insertions and roams",
		},
		[]string{"event"},
	)

	// WarningsSuppressedTotal counts unsolicited-connection warnings held
	// back by the per-peer limit
	WarningsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wfw_warnings_suppressed_total",
			Help: "Total number of unsolicited connection warnings suppressed by rate limiting",
		},
	)

	// LearnedAddresses tracks the learning table size
	LearnedAddresses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wfw_learned_addresses",
			Help: "Number of hardware addresses in the learning table",
		},
	)

	// TrackedSessions tracks the number of recorded outbound handshakes
	TrackedSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wfw_tracked_sessions",
			Help: "Number of outbound TCP handshakes recorded",
		},
	)

	// BlacklistedRemotes tracks the blacklist size
	BlacklistedRemotes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wfw_blacklisted_remotes",
			Help: "Number of remote IPv6 addresses flagged for unsolicited SYNs",
		},
	)

	// EngineRunning is 1 while the bridge loop runs
	EngineRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wfw_engine_running",
			Help: "Whether the bridge event loop is running (1) or stopped (0)",
		},
	)
)
