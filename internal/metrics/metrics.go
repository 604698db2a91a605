// Package metrics exposes the desk's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "optionsdesk"

// Result labels for ObserveOperation.
const (
	ResultOK       = "ok"
	ResultReverted = "reverted"
	ResultError    = "error"
)

// Registry owns its own prometheus.Registry so tests and multiple
// instances never collide on the default registerer. A nil *Registry is
// valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OperationsTotal     *prometheus.CounterVec
	RevertsTotal        *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
	OptionsLapsed       prometheus.Counter
	OptionsArchived     prometheus.Counter
	TokenPrice          *prometheus.GaugeVec
	WebsocketClients    prometheus.Gauge
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Desk operations by name and result",
		}, []string{"operation", "result"}),
		RevertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverts_total",
			Help:      "Reverted operations by reason",
		}, []string{"operation", "reason"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events handed to the bus",
		}, []string{"bus", "type"}),
		OptionsLapsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "options_lapsed_total",
			Help:      "Options marked lapsed by the expiry sweeper",
		}),
		OptionsArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "options_archived_total",
			Help:      "Settled options exported to the archive",
		}),
		TokenPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_price_ether",
			Help:      "Current market price per token in ether",
		}, []string{"symbol"}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket subscribers",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.HTTPRequestsTotal,
		r.HTTPRequestDuration,
		r.OperationsTotal,
		r.RevertsTotal,
		r.EventsPublished,
		r.OptionsLapsed,
		r.OptionsArchived,
		r.TokenPrice,
		r.WebsocketClients,
	)
	return r
}

// Gatherer exposes the underlying registry for tests and custom handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// GinMiddleware records request count and latency keyed by the matched route.
func (r *Registry) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveOperation counts one desk operation outcome.
func (r *Registry) ObserveOperation(operation, result string) {
	if r == nil {
		return
	}
	r.OperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveRevert counts a rejected operation by its revert reason.
func (r *Registry) ObserveRevert(operation, reason string) {
	if r == nil {
		return
	}
	r.OperationsTotal.WithLabelValues(operation, ResultReverted).Inc()
	r.RevertsTotal.WithLabelValues(operation, reason).Inc()
}

func (r *Registry) ObserveEvent(bus, eventType string) {
	if r == nil {
		return
	}
	r.EventsPublished.WithLabelValues(bus, eventType).Inc()
}

func (r *Registry) AddLapsed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.OptionsLapsed.Add(float64(n))
}

func (r *Registry) AddArchived(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.OptionsArchived.Add(float64(n))
}

func (r *Registry) SetTokenPrice(symbol string, ether float64) {
	if r == nil {
		return
	}
	r.TokenPrice.WithLabelValues(symbol).Set(ether)
}

func (r *Registry) SetWebsocketClients(n int) {
	if r == nil {
		return
	}
	r.WebsocketClients.Set(float64(n))
}
