// Package telemetry holds the prometheus collectors and OpenTelemetry
// tracing setup shared by the client, the gateway and the trigger.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/errs"
)

const namespace = "tgflow"

// Metrics owns a private registry so tests and multiple instances do not
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	operations    *prometheus.CounterVec
	operationTime *prometheus.HistogramVec
	rpcs          *prometheus.CounterVec
	rpcTime       *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpTime      *prometheus.HistogramVec
	triggerPolls  *prometheus.CounterVec
	triggerEvents *prometheus.CounterVec
}

var _ client.Observer = (*Metrics)(nil)

// NewMetrics creates and registers every collector, plus the Go and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "operations_total",
			Help:      "Domain operations by outcome (ok or an error kind).",
		}, []string{"operation", "outcome"}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "operation_duration_seconds",
			Help:      "Domain operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mtproto",
			Name:      "rpc_total",
			Help:      "MTProto RPC calls by method and result.",
		}, []string{"method", "result"}),
		rpcTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mtproto",
			Name:      "rpc_duration_seconds",
			Help:      "MTProto RPC duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Gateway HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Gateway HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		triggerPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trigger",
			Name:      "polls_total",
			Help:      "Trigger polls by outcome.",
		}, []string{"outcome"}),
		triggerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trigger",
			Name:      "events_total",
			Help:      "Trigger events emitted by chat kind.",
		}, []string{"chat_type"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations, m.operationTime,
		m.rpcs, m.rpcTime,
		m.httpRequests, m.httpTime,
		m.triggerPolls, m.triggerEvents,
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation implements client.Observer.
func (m *Metrics) ObserveOperation(op string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(errs.KindOf(err))
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.operationTime.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveHTTP records one gateway request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpTime.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObservePoll records one trigger poll.
func (m *Metrics) ObservePoll(err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(errs.KindOf(err))
	}
	m.triggerPolls.WithLabelValues(outcome).Inc()
}

// ObserveEvent records one emitted trigger event.
func (m *Metrics) ObserveEvent(chatType string) {
	m.triggerEvents.WithLabelValues(chatType).Inc()
}

// RPCMiddleware counts and times every MTProto call made through a gotd
// client. Failures are labelled with the RPC error type, e.g. FLOOD_WAIT.
func (m *Metrics) RPCMiddleware() telegram.Middleware {
	return telegram.MiddlewareFunc(func(next tg.Invoker) telegram.InvokeFunc {
		return func(ctx context.Context, input bin.Encoder, output bin.Decoder) error {
			method := rpcMethod(input)
			start := time.Now()
			err := next.Invoke(ctx, input, output)
			m.rpcTime.WithLabelValues(method).Observe(time.Since(start).Seconds())
			m.rpcs.WithLabelValues(method, rpcResult(err)).Inc()
			return err
		}
	})
}

func rpcMethod(input bin.Encoder) string {
	if named, ok := input.(interface{ TypeName() string }); ok {
		return named.TypeName()
	}
	return "unknown"
}

func rpcResult(err error) string {
	if err == nil {
		return "ok"
	}
	if rpcErr, ok := tgerr.As(err); ok {
		return rpcErr.Type
	}
	return "error"
}
