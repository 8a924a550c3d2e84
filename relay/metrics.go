package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_requests_total",
		Help: "Relayed requests by upstream status code.",
	}, []string{"code"})

	relayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_request_duration_seconds",
		Help:    "Time spent forwarding one request upstream.",
		Buckets: prometheus.DefBuckets,
	})
)
