package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the API and the audit worker.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	denialsRecordedTotal     *prometheus.CounterVec
	blockedRequestsTotal     prometheus.Counter
	settingsPromptsTotal     *prometheus.CounterVec
	autoClearsTotal          prometheus.Counter
	eventsPublishedTotal     *prometheus.CounterVec
	eventsPublishFailedTotal *prometheus.CounterVec
	auditEventsStoredTotal   *prometheus.CounterVec
	rateLimitedTotal         prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "permission_tracker",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		denialsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "denials_recorded_total",
				Help:      "Total number of explicit denials recorded, by permanence.",
			},
			[]string{"permanent"},
		),
		blockedRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "blocked_requests_recorded_total",
				Help:      "Total number of platform-suppressed request attempts recorded.",
			},
		),
		settingsPromptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "settings_prompts_recorded_total",
				Help:      "Total number of go-to-settings prompts recorded, by user action.",
			},
			[]string{"action"},
		),
		autoClearsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "auto_clears_total",
				Help:      "Total number of history clears triggered by an observed grant.",
			},
		),
		eventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "events_published_total",
				Help:      "Total number of permission events published to the broker.",
			},
			[]string{"type"},
		),
		eventsPublishFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "events_publish_failed_total",
				Help:      "Total number of permission events that failed to publish.",
			},
			[]string{"type"},
		),
		auditEventsStoredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "audit_events_stored_total",
				Help:      "Total number of permission events persisted by the audit worker.",
			},
			[]string{"type"},
		),
		rateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "permission_tracker",
				Name:      "rate_limited_requests_total",
				Help:      "Total number of record requests rejected by the per-install rate limit.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.denialsRecordedTotal,
		m.blockedRequestsTotal,
		m.settingsPromptsTotal,
		m.autoClearsTotal,
		m.eventsPublishedTotal,
		m.eventsPublishFailedTotal,
		m.auditEventsStoredTotal,
		m.rateLimitedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncDenialRecorded(permanent bool) {
	if m == nil {
		return
	}
	m.denialsRecordedTotal.WithLabelValues(strconv.FormatBool(permanent)).Inc()
}

func (m *Metrics) IncBlockedRequestRecorded() {
	if m == nil {
		return
	}
	m.blockedRequestsTotal.Inc()
}

func (m *Metrics) IncSettingsPromptRecorded(openedSettings bool) {
	if m == nil {
		return
	}
	action := "dismissed"
	if openedSettings {
		action = "opened_settings"
	}
	m.settingsPromptsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) IncAutoClear() {
	if m == nil {
		return
	}
	m.autoClearsTotal.Inc()
}

func (m *Metrics) IncEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublishedTotal.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *Metrics) IncEventPublishFailed(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublishFailedTotal.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *Metrics) IncAuditEventStored(eventType string) {
	if m == nil {
		return
	}
	m.auditEventsStoredTotal.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
