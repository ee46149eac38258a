package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	pageLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aforo",
			Name:      "page_loads_total",
			Help:      "Page view-model loads by page and outcome.",
		},
		[]string{"page", "outcome"},
	)

	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aforo",
			Name:      "actions_total",
			Help:      "User-triggered mutations by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	backendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aforo",
			Name:      "backend_requests_total",
			Help:      "Requests to the events backend by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(pageLoads, actions, backendRequests)
	})
}

// IncPageLoad increments the page-load counter for a page and outcome
// ("ready" or "failed").
func IncPageLoad(page, outcome string) {
	pageLoads.WithLabelValues(page, outcome).Inc()
}

// IncAction increments the mutation counter for an action and outcome.
func IncAction(action, outcome string) {
	actions.WithLabelValues(action, outcome).Inc()
}

// IncBackend increments the backend request counter. Status 0 means the
// request never produced a response (transport failure).
func IncBackend(endpoint string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status/100) + "xx"
	}
	backendRequests.WithLabelValues(endpoint, label).Inc()
}
