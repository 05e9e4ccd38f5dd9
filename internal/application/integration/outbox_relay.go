package integration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/tracing"
)

// RelayConfig 发件箱参数，对应config.OutboxConfig
type RelayConfig struct {
	Inline       bool
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	// Lease 发送期间占用记录的时长，进程在发送中途退出时记录在租期结束后重新到期
	Lease time.Duration
}

// OutboxRelay 把事务内写入的发件箱记录发送给渠道
// API进程在提交后调用Flush立即发送；worker进程用Run轮询到期记录重试。
// 两条路径发送前都先Claim，同一条记录只会被一方发送。
type OutboxRelay struct {
	outbox     integration.OutboxRepository
	dispatcher *Dispatcher
	cfg        RelayConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewOutboxRelay 创建relay
func NewOutboxRelay(outbox integration.OutboxRepository, dispatcher *Dispatcher, cfg RelayConfig, m *metrics.Metrics, logger *zap.Logger) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	return &OutboxRelay{
		outbox:     outbox,
		dispatcher: dispatcher,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Enqueue 在当前事务内写入发件箱，返回记录ID供提交后Flush
func (r *OutboxRelay) Enqueue(ctx context.Context, channelID uint, p integration.Payload) (string, error) {
	intent, err := integration.NewIntent(channelID, p)
	if err != nil {
		return "", err
	}
	if err := r.outbox.Enqueue(ctx, intent); err != nil {
		return "", err
	}
	return intent.ID, nil
}

// Flush 提交后立即发送指定记录，inline关闭时什么都不做
// 发送失败只记录，记录保持PENDING等worker重试
func (r *OutboxRelay) Flush(ctx context.Context, ids ...string) {
	if !r.cfg.Inline {
		return
	}
	for _, id := range ids {
		intent, err := r.outbox.FindByID(ctx, id)
		if err != nil {
			r.logger.Warn("outbox flush: load intent failed", zap.String("intent_id", id), zap.Error(err))
			continue
		}
		if intent.Status != integration.IntentPending {
			continue
		}
		if !r.claim(ctx, intent) {
			continue
		}
		if err := r.deliver(ctx, intent); err != nil {
			r.logger.Warn("outbox flush failed",
				zap.String("intent_id", id),
				zap.Uint("channel_id", intent.ChannelID),
				zap.String("operation", string(intent.Operation)),
				zap.Error(err),
			)
		}
	}
}

// Run 轮询到期记录直到ctx取消
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay started",
		zap.Duration("poll_interval", r.cfg.PollInterval),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Int("max_attempts", r.cfg.MaxAttempts),
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("outbox relay poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce 处理一批到期记录，返回本进程实际发送的条数
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	intents, err := r.outbox.PullPending(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, intent := range intents {
		if ctx.Err() != nil {
			return sent, nil
		}
		if !r.claim(ctx, intent) {
			continue
		}
		sent++
		// 失败已经记录在发件箱和日志里
		_ = r.deliver(ctx, intent)
	}

	if counts, err := r.outbox.CountByStatus(ctx); err == nil {
		r.metrics.OutboxPending.Set(float64(counts[integration.IntentPending]))
	}
	return sent, nil
}

// claim 占用失败或已被其他进程占用时返回false
func (r *OutboxRelay) claim(ctx context.Context, intent *integration.OutboxIntent) bool {
	now := r.now()
	ok, err := r.outbox.Claim(ctx, intent.ID, now, now.Add(r.cfg.Lease))
	if err != nil {
		r.logger.Warn("outbox claim failed", zap.String("intent_id", intent.ID), zap.Error(err))
		return false
	}
	return ok
}

func (r *OutboxRelay) deliver(ctx context.Context, intent *integration.OutboxIntent) (err error) {
	ctx, span := tracing.StartSpan(ctx, "outbox.deliver",
		attribute.String("outbox.intent_id", intent.ID),
		attribute.Int("outbox.attempts", intent.Attempts),
	)
	defer func() { tracing.End(span, err) }()

	res, err := r.dispatcher.DispatchRaw(ctx, intent.ChannelID, intent.Operation, intent.Payload, nil)
	if err == nil {
		r.metrics.OutboxProcessedTotal.WithLabelValues("dispatched").Inc()
		return r.outbox.MarkDispatched(ctx, intent.ID, res.LogID)
	}

	var logID *uint
	if res != nil {
		logID = &res.LogID
	}
	attempts := intent.Attempts + 1
	dead := attempts >= r.cfg.MaxAttempts
	next := r.now().Add(integration.Backoff(r.cfg.BaseBackoff, attempts))

	if dead {
		r.metrics.OutboxDeadTotal.Inc()
		r.metrics.OutboxProcessedTotal.WithLabelValues("dead").Inc()
		r.logger.Error("outbox intent dead",
			zap.String("intent_id", intent.ID),
			zap.Uint("channel_id", intent.ChannelID),
			zap.String("operation", string(intent.Operation)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	} else {
		r.metrics.OutboxProcessedTotal.WithLabelValues("retry").Inc()
	}

	if markErr := r.outbox.MarkFailed(ctx, intent.ID, logID, err.Error(), next, dead); markErr != nil {
		return markErr
	}
	return err
}

// ListIntents 运维查询，status为空时返回全部
func (r *OutboxRelay) ListIntents(ctx context.Context, status integration.IntentStatus, limit int) ([]*integration.OutboxIntent, error) {
	return r.outbox.ListByStatus(ctx, status, limit)
}

// Requeue DEAD记录重新入队，inline时立即尝试一次
func (r *OutboxRelay) Requeue(ctx context.Context, id string) (*integration.OutboxIntent, error) {
	if err := r.outbox.Requeue(ctx, id); err != nil {
		return nil, err
	}
	r.Flush(ctx, id)
	return r.outbox.FindByID(ctx, id)
}
