package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poker_ws_connections_active",
		Help: "The current number of registered WebSocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_ws_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})
	RejectedConnections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_ws_connections_rejected_total",
		Help: "WebSocket upgrades refused before registration.",
	}, []string{"reason"})
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_ws_messages_received_total",
		Help: "Inbound messages by type.",
	}, []string{"type"})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_ws_messages_sent_total",
		Help: "Frames queued to clients.",
	})
	ProtocolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_ws_errors_total",
		Help: "Error replies sent to clients by code.",
	}, []string{"code"})
	BackpressureKicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_ws_backpressure_total",
		Help: "Sends that found the outbound queue full.",
	})
	HeartbeatTerminations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_ws_heartbeat_terminations_total",
		Help: "Connections closed for missing a pong.",
	})

	// Sessions
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poker_sessions_active",
		Help: "Sessions currently held by the store.",
	})
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_sessions_created_total",
		Help: "Sessions created through the HTTP surface.",
	})
	SessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_sessions_reaped_total",
		Help: "Idle sessions deleted by the reaper.",
	})
	VotesRevealed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_rounds_revealed_total",
		Help: "Rounds whose votes were revealed.",
	})

	// Persistence
	SnapshotWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_snapshot_writes_total",
		Help: "Session snapshot writes by outcome.",
	}, []string{"outcome"})
	SnapshotRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_snapshot_retries_total",
		Help: "Retries while writing session snapshots.",
	})
)
