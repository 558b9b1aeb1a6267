// Package metrics 提供持仓服务的 Prometheus 指标与采集接口
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合，每个实例持有独立的 Registry
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 持仓合并结果计数
	MergesTotal *prometheus.CounterVec
	// 数量换算计数（按余数策略，是否有余数）
	ConversionsTotal *prometheus.CounterVec
	// 冻结/解冻计数
	ReservationsTotal *prometheus.CounterVec
	// Outbox 投递计数
	OutboxMessagesTotal *prometheus.CounterVec
	// Outbox 积压
	OutboxPending prometheus.Gauge
}

// New 创建指标实例并注册到独立 Registry
func New(serviceName string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		MergesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: serviceName,
			Name:      "merges_total",
			Help:      "Position merges by result status",
		}, []string{"status"}),
		ConversionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: serviceName,
			Name:      "conversions_total",
			Help:      "Quantity conversions by remainder policy",
		}, []string{"policy", "remainder"}),
		ReservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: serviceName,
			Name:      "reservations_total",
			Help:      "Position reservation transitions",
		}, []string{"action"}),
		OutboxMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: serviceName,
			Name:      "outbox_messages_total",
			Help:      "Outbox messages relayed by result",
		}, []string{"result"}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: serviceName,
			Name:      "outbox_pending",
			Help:      "Outbox messages waiting to be relayed",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.MergesTotal,
		m.ConversionsTotal,
		m.ReservationsTotal,
		m.OutboxMessagesTotal,
		m.OutboxPending,
	)
	return m
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回暴露本实例指标的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Collector 业务代码依赖的指标采集接口
type Collector interface {
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
	RecordMerge(status string)
	RecordConversion(policy string, hasRemainder bool)
	RecordReservation(action string)
	RecordOutbox(result string, n int)
	SetOutboxPending(n int64)
}

var _ Collector = (*Metrics)(nil)

func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func (m *Metrics) RecordMerge(status string) {
	m.MergesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordConversion(policy string, hasRemainder bool) {
	m.ConversionsTotal.WithLabelValues(policy, strconv.FormatBool(hasRemainder)).Inc()
}

func (m *Metrics) RecordReservation(action string) {
	m.ReservationsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordOutbox(result string, n int) {
	if n <= 0 {
		return
	}
	m.OutboxMessagesTotal.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) SetOutboxPending(n int64) {
	m.OutboxPending.Set(float64(n))
}

// Nop 不做任何记录的采集器
type Nop struct{}

var _ Collector = Nop{}

func (Nop) RecordHTTPRequest(string, string, int, float64) {}
func (Nop) RecordMerge(string)                             {}
func (Nop) RecordConversion(string, bool)                  {}
func (Nop) RecordReservation(string)                       {}
func (Nop) RecordOutbox(string, int)                       {}
func (Nop) SetOutboxPending(int64)                         {}
