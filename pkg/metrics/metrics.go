// Package metrics collects and exposes Prometheus metrics for the auth
// service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records request and domain counters for the auth service.
type Collector struct {
	httpRequests    *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	signups         prometheus.Counter
	logins          *prometheus.CounterVec
	codesIssued     prometheus.Counter
	codesChecked    *prometheus.CounterVec
	withdrawals     prometheus.Counter
	emailSendErrors prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_http_requests_total",
			Help: "HTTP requests by method, path and status code",
		}, []string{"method", "path", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auth_http_request_latency_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_signups_total",
			Help: "Accounts created",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_verification_codes_issued_total",
			Help: "Verification codes issued",
		}),
		codesChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_verification_checks_total",
			Help: "Verification code checks by outcome",
		}, []string{"outcome"}),
		withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_withdrawals_total",
			Help: "Accounts withdrawn",
		}),
		emailSendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_email_send_errors_total",
			Help: "Failed verification email deliveries",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.requestLatency,
		c.signups,
		c.logins,
		c.codesIssued,
		c.codesChecked,
		c.withdrawals,
		c.emailSendErrors,
	)

	return c
}

// RecordSignup counts a created account.
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordLogin counts a login attempt. outcome is "success" or "failure".
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordCodeIssued counts an issued verification code.
func (c *Collector) RecordCodeIssued() {
	c.codesIssued.Inc()
}

// RecordCodeCheck counts a verification check. outcome is "success",
// "invalid", "not_found" or "exhausted".
func (c *Collector) RecordCodeCheck(outcome string) {
	c.codesChecked.WithLabelValues(outcome).Inc()
}

// RecordWithdrawal counts a deleted account.
func (c *Collector) RecordWithdrawal() {
	c.withdrawals.Inc()
}

// RecordEmailSendError counts a failed delivery.
func (c *Collector) RecordEmailSendError() {
	c.emailSendErrors.Inc()
}

// Middleware counts every request and observes its latency. Mounted routes
// are labeled with the raw request path.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		c.httpRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
		c.requestLatency.Observe(time.Since(start).Seconds())
	})
}

// SetupMetricsRoute returns the handler exposing the registry in Prometheus
// text format.
func SetupMetricsRoute(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
