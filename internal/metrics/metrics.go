package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttt_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ttt_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ttt_rooms_created_total",
			Help: "Total rooms created",
		},
	)

	RoomUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttt_room_updates_total",
			Help: "Room writes by outcome",
		},
		[]string{"outcome"}, // "ok", "conflict", "not_found", "error"
	)

	FeedPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ttt_feed_publish_failures_total",
			Help: "Room updates that could not be published to subscribers",
		},
	)

	WatchersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ttt_room_watchers",
			Help: "Open websocket room subscriptions",
		},
	)
)
