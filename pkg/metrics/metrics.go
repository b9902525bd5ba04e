package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhookEvents counts inbound telephony events by kind
	// (connect, speech, status, gather_empty).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "heartline",
		Name:      "webhook_events_total",
		Help:      "Inbound telephony webhook events by kind",
	}, []string{"kind"})

	// Escalations counts escalation decisions by outcome
	// (assigned, no_counselor).
	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "heartline",
		Name:      "escalations_total",
		Help:      "Escalation decisions by outcome",
	}, []string{"outcome"})

	// ExtractionFallbacks counts dictation turns answered by the
	// deterministic extractor after the LLM path came back empty.
	ExtractionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "heartline",
		Name:      "extraction_fallbacks_total",
		Help:      "Dictation turns resolved by the heuristic extractor",
	})

	// CompletionTimeouts counts completion-service calls abandoned at the
	// deadline.
	CompletionTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "heartline",
		Name:      "completion_timeouts_total",
		Help:      "Completion service calls that hit the timeout",
	})
)

// Handler serves the prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
