package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay gauges
var (
	RelayRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meshcall_relay_rooms",
		Help: "Number of open rooms on the relay",
	})
	RelayMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meshcall_relay_members",
		Help: "Number of registered members across all rooms",
	})
)

// Relay counters
var (
	RelayMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meshcall_relay_messages_total",
		Help: "Inbound relay messages by kind",
	}, []string{"type"})
	RelayRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meshcall_relay_rejected_total",
		Help: "Inbound relay messages rejected by reason",
	}, []string{"reason"})
	RelayKickedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meshcall_relay_kicked_total",
		Help: "Members disconnected for back-pressure",
	})
)

// Client mesh
var (
	MeshPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meshcall_mesh_peers",
		Help: "Remote peers tracked by the local session",
	})
	NegotiationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meshcall_negotiation_failures_total",
		Help: "Peer connections torn down after a failed offer/answer or candidate",
	})
	StaleSignalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meshcall_stale_signals_total",
		Help: "Signals dropped because no live peer record matched",
	})
	SignalsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meshcall_signals_sent_total",
		Help: "Outbound signals by payload kind",
	}, []string{"kind"})
)
