package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liveroom_events_total",
		Help: "Client events processed, by event type",
	}, []string{"type"})

	metricRelays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liveroom_signal_relays_total",
		Help: "WebRTC signaling frames relayed, by stream type",
	}, []string{"stream_type"})

	metricRelayMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveroom_signal_relay_misses_total",
		Help: "Signaling frames not delivered (stale room, absent target, backpressure)",
	})

	metricParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "liveroom_participants",
		Help: "Participants currently in rooms",
	})

	metricRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "liveroom_rooms",
		Help: "Rooms currently live",
	})

	metricDroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveroom_stale_events_total",
		Help: "Events dropped because the referenced room was gone",
	})
)
