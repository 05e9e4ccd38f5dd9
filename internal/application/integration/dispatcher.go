package integration

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/tracing"
)

// Dispatcher 渠道调用门面
// 每次调用都写一行集成日志（成功或失败），失败统一返回INTEGRATION_FAILURE
type Dispatcher struct {
	adapter  integration.Adapter
	logs     integration.LogRepository
	breakers *circuitbreaker.Group
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewDispatcher 创建调度器
func NewDispatcher(
	adapter integration.Adapter,
	logs integration.LogRepository,
	breakers *circuitbreaker.Group,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		adapter:  adapter,
		logs:     logs,
		breakers: breakers,
		metrics:  m,
		logger:   logger,
	}
}

// Result 一次调用的结果
type Result struct {
	LogID    uint            `json:"logId"`
	Response json.RawMessage `json:"response"`
}

// Dispatch 序列化载荷后调用渠道
func (d *Dispatcher) Dispatch(ctx context.Context, channelID uint, p integration.Payload) (*Result, error) {
	op, raw, err := integration.Encode(p)
	if err != nil {
		return nil, err
	}
	return d.DispatchRaw(ctx, channelID, op, raw, nil)
}

// Retry 按原始字节重放一条日志，新日志的RetryOf指向原日志
// 原日志成功与否都可以重放
func (d *Dispatcher) Retry(ctx context.Context, logID uint) (*Result, error) {
	orig, err := d.logs.FindByID(ctx, logID)
	if err != nil {
		return nil, err
	}
	return d.DispatchRaw(ctx, orig.ChannelID, orig.Operation, orig.Payload, &logID)
}

// DispatchRaw 调用适配器并记录日志；raw不做任何改写
func (d *Dispatcher) DispatchRaw(ctx context.Context, channelID uint, op integration.Operation, raw json.RawMessage, retryOf *uint) (res *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "integration.dispatch",
		attribute.Int64("channel.id", int64(channelID)),
		attribute.String("integration.operation", string(op)),
	)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	var resp json.RawMessage
	breaker := d.breakers.Get("channel-" + strconv.FormatUint(uint64(channelID), 10))
	callErr := breaker.Execute(func() error {
		var e error
		resp, e = d.adapter.Call(ctx, integration.Request{ChannelID: channelID, Operation: op, Payload: raw})
		return e
	})
	d.metrics.DispatchDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	d.metrics.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(breaker.State()))

	entry := &integration.Log{
		ChannelID: channelID,
		Operation: op,
		Payload:   raw,
		RetryOf:   retryOf,
		CreatedAt: time.Now(),
	}
	if callErr != nil {
		entry.Status = integration.LogFailed
		entry.Error = callErr.Error()
		entry.Response, _ = json.Marshal(map[string]string{"error": callErr.Error()})
	} else {
		entry.Status = integration.LogSuccess
		entry.Response = resp
	}
	d.metrics.DispatchTotal.WithLabelValues(string(op), string(entry.Status)).Inc()

	if err := d.logs.Create(ctx, entry); err != nil {
		d.logger.Error("write integration log failed",
			zap.Uint("channel_id", channelID),
			zap.String("operation", string(op)),
			zap.Error(err),
		)
		return nil, err
	}

	if callErr != nil {
		d.logger.Warn("channel call failed",
			zap.Uint("channel_id", channelID),
			zap.String("operation", string(op)),
			zap.Uint("log_id", entry.ID),
			zap.Error(callErr),
		)
		return &Result{LogID: entry.ID, Response: entry.Response},
			apperrors.ErrIntegrationFailure.WithDetail("%s: %s", op, callErr.Error()).WithErr(callErr)
	}
	return &Result{LogID: entry.ID, Response: entry.Response}, nil
}

// ListLogs 按条件查询集成日志，最新的在前
func (d *Dispatcher) ListLogs(ctx context.Context, params integration.ListParams) ([]*integration.Log, error) {
	return d.logs.List(ctx, params)
}
