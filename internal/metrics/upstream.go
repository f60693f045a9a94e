package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream service Prometheus metrics. The service label is one of
// pinecone, mistral, tesseract, openai, emailjs, formspree, assets.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperfinder",
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream requests",
		},
		[]string{"service", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperfinder",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service"},
	)

	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperfinder",
			Name:      "upstream_errors_total",
			Help:      "Total upstream errors",
		},
		[]string{"service", "error_type"},
	)

	ChatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperfinder",
			Name:      "chat_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"model", "type"},
	)

	ChatBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "paperfinder",
			Name:      "chat_budget_tokens_remaining",
			Help:      "Remaining chat token budget",
		},
		[]string{"period"},
	)

	OCRCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperfinder",
			Name:      "ocr_cache_total",
			Help:      "OCR cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperfinder",
			Name:      "search_fallbacks_total",
			Help:      "Searches answered with the error sentinel",
		},
		[]string{"reason"},
	)
)

var upstreamMetricsRegistered bool

// RegisterUpstreamMetrics registers upstream Prometheus metrics. Must be called once from main.
func RegisterUpstreamMetrics() {
	if upstreamMetricsRegistered {
		return
	}
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(UpstreamErrorsTotal)
	prometheus.MustRegister(ChatTokensTotal)
	prometheus.MustRegister(ChatBudgetTokensRemaining)
	prometheus.MustRegister(OCRCacheTotal)
	prometheus.MustRegister(SearchFallbacksTotal)
	upstreamMetricsRegistered = true
}

// ObserveUpstream records one finished upstream call.
func ObserveUpstream(service string, seconds float64, err error) {
	if err != nil {
		UpstreamRequestsTotal.WithLabelValues(service, "error").Inc()
		return
	}
	UpstreamRequestsTotal.WithLabelValues(service, "success").Inc()
	UpstreamRequestDuration.WithLabelValues(service).Observe(seconds)
}
