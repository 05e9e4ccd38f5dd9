// Package metrics Prometheus指标
//
// 所有指标挂在一个Metrics实例上，注册到调用方给出的Registerer，
// 测试中每个用例可以用独立的Registry互不干扰。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 订单状态变更，result: success/failure
	OrderTransitionsTotal *prometheus.CounterVec
	// 上架状态变更
	ListingTransitionsTotal *prometheus.CounterVec

	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	OutboxProcessedTotal *prometheus.CounterVec
	OutboxDeadTotal      prometheus.Counter
	OutboxPending        prometheus.Gauge

	BulkItemsTotal *prometheus.CounterVec

	CircuitBreakerState *prometheus.GaugeVec

	MessagesPublishedTotal *prometheus.CounterVec
	MessagesConsumedTotal  *prometheus.CounterVec
}

// New 创建并注册全部指标
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "path"}),

		OrderTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "订单状态变更次数",
		}, []string{"to", "result"}),

		ListingTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "listing_transitions_total",
			Help: "渠道商品状态变更次数",
		}, []string{"to", "result"}),

		DispatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "integration_dispatch_total",
			Help: "渠道调用次数",
		}, []string{"operation", "status"}),

		DispatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "integration_dispatch_duration_seconds",
			Help:    "渠道调用耗时（秒）",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"operation"}),

		OutboxProcessedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_processed_total",
			Help: "发件箱处理次数",
		}, []string{"result"}),

		OutboxDeadTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "outbox_dead_total",
			Help: "重试耗尽进入DEAD的发件箱记录数",
		}),

		OutboxPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending",
			Help: "待发送的发件箱记录数",
		}),

		BulkItemsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_items_total",
			Help: "批量操作逐项结果",
		}, []string{"action", "result"}),

		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		}, []string{"name"}),

		MessagesPublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		}, []string{"broker", "destination"}),

		MessagesConsumedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费总数",
		}, []string{"queue", "result"}),
	}
}

// NewNop 注册到一次性Registry，用于不暴露指标的场景和测试
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Result 把error转成标签值
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
