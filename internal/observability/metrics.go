package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// NearbyQueryLatency records proximity query latency end to end.
	NearbyQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbit_nearby_query_latency_seconds",
		Help:    "Proximity search latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// NearbyCandidates records how many candidates the spatial prefilter
	// returned before exact distance filtering.
	NearbyCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbit_nearby_candidates",
		Help:    "Candidate rows returned by the spatial prefilter per query",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	// NotificationsPublished counts notifications fanned out by type.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_notifications_published_total",
		Help: "Total notifications published to Redis by type",
	}, []string{"type"})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orbit_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped because a client's
	// send buffer was full, labeled by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// ObserveNearbyQuery records the latency of one proximity search.
func ObserveNearbyQuery(start time.Time, candidates int) {
	NearbyQueryLatency.Observe(time.Since(start).Seconds())
	NearbyCandidates.Observe(float64(candidates))
}

// RecordNotificationPublished increments the fan-out counter for the type.
func RecordNotificationPublished(notifType string) {
	NotificationsPublished.WithLabelValues(notifType).Inc()
}

// RecordWebSocketEvent increments the WebSocket events counter.
func RecordWebSocketEvent(eventType string) {
	WebSocketEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordBackpressureDrop increments the drop counter for a hub.
func RecordBackpressureDrop(hub, reason string) {
	WebSocketBackpressureDrops.WithLabelValues(hub, reason).Inc()
}
