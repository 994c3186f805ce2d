package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/paramx/paramx/internal/logging"
	"github.com/paramx/paramx/internal/rules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	requestsTotal       *prometheus.CounterVec
	ruleFiredTotal      *prometheus.CounterVec
	ruleErrorsTotal     *prometheus.CounterVec
	reloadsTotal        *prometheus.CounterVec
	capabilitiesRewrite prometheus.Counter
	requestDuration     *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "paramx_requests_total", Help: "Total requests"},
			[]string{"route", "rewritten", "code"},
		),
		ruleFiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "paramx_rule_fired_total", Help: "Total rule applications that changed a request"},
			[]string{"rule_id"},
		),
		ruleErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "paramx_rule_errors_total", Help: "Total rule evaluation failures"},
			[]string{"rule_id"},
		),
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "paramx_reloads_total", Help: "Total configuration reload attempts"},
			[]string{"set", "result"},
		),
		capabilitiesRewrite: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "paramx_capabilities_rewrites_total", Help: "Total capabilities documents rewritten"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paramx_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.requestsTotal,
		m.ruleFiredTotal,
		m.ruleErrorsTotal,
		m.reloadsTotal,
		m.capabilitiesRewrite,
		m.requestDuration,
	)

	return m
}

func (m *Metrics) Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Observe records a finished request.
func (m *Metrics) Observe(record logging.Record) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(record.RouteID, strconv.FormatBool(record.Rewritten), strconv.Itoa(record.StatusCode)).Inc()
	m.requestDuration.WithLabelValues(record.RouteID).Observe((time.Duration(record.DurationMS) * time.Millisecond).Seconds())
}

// ObserveRules counts fired rules and, when err names a rule, the failure.
func (m *Metrics) ObserveRules(fired []string, err error) {
	if m == nil {
		return
	}
	for _, id := range fired {
		m.ruleFiredTotal.WithLabelValues(id).Inc()
	}
	if err != nil {
		id := "unknown"
		var ruleErr *rules.RuleError
		if errors.As(err, &ruleErr) {
			id = ruleErr.ID
		}
		m.ruleErrorsTotal.WithLabelValues(id).Inc()
	}
}

// ObserveReload matches the reload hook signature of store.Live.
func (m *Metrics) ObserveReload(set string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloadsTotal.WithLabelValues(set, result).Inc()
}

func (m *Metrics) ObserveCapabilitiesRewrite() {
	if m == nil {
		return
	}
	m.capabilitiesRewrite.Inc()
}
