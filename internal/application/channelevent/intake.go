package channelevent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Deduper 重复投递保护，由redis.EventGuard实现
type Deduper interface {
	FirstDelivery(ctx context.Context, channelID uint, eventType, externalOrderID string, occurredAt *time.Time) (bool, error)
	Forget(ctx context.Context, channelID uint, eventType, externalOrderID string, occurredAt *time.Time) error
}

// Intake Webhook和消息队列共用的入口：去重后交给对账服务
type Intake struct {
	reconciler *Reconciler
	dedupe     Deduper
	logger     *zap.Logger
}

// NewIntake 创建入口，dedupe可以为nil
func NewIntake(reconciler *Reconciler, dedupe Deduper, logger *zap.Logger) *Intake {
	return &Intake{reconciler: reconciler, dedupe: dedupe, logger: logger}
}

// Receive 处理一条渠道事件；重复投递直接返回Duplicate
// 对账失败时撤销去重标记，渠道重投可以再次处理
func (in *Intake) Receive(ctx context.Context, channelID uint, e Event) (*Outcome, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if in.dedupe != nil {
		first, err := in.dedupe.FirstDelivery(ctx, channelID, string(e.Type), e.ExternalOrderID, e.OccurredAt)
		if err != nil {
			return nil, err
		}
		if !first {
			in.logger.Info("duplicate channel event skipped",
				zap.Uint("channel_id", channelID),
				zap.String("type", string(e.Type)),
				zap.String("external_order_id", e.ExternalOrderID),
			)
			return &Outcome{Duplicate: true}, nil
		}
	}

	outcome, err := in.reconciler.Handle(ctx, channelID, e)
	if err != nil {
		if in.dedupe != nil {
			if ferr := in.dedupe.Forget(ctx, channelID, string(e.Type), e.ExternalOrderID, e.OccurredAt); ferr != nil {
				in.logger.Warn("forget channel event failed", zap.Error(ferr))
			}
		}
		return nil, err
	}

	in.logger.Info("channel event reconciled",
		zap.Uint("channel_id", channelID),
		zap.String("type", string(e.Type)),
		zap.Uint("order_id", outcome.OrderID),
		zap.String("status", outcome.Status),
		zap.Bool("awaiting_warehouse", outcome.AwaitingWarehouse),
	)
	return outcome, nil
}
