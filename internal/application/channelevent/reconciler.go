package channelevent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	apporder "github.com/xiebiao/omnichannel/internal/application/order"
	"github.com/xiebiao/omnichannel/internal/domain/order"
)

// Reconciler 渠道事件对账
type Reconciler struct {
	orders      order.Repository
	transitions *apporder.TransitionService
	logger      *zap.Logger
	now         func() time.Time
}

// NewReconciler 创建对账服务
func NewReconciler(orders order.Repository, transitions *apporder.TransitionService, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		orders:      orders,
		transitions: transitions,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle 按事件类型分派
func (r *Reconciler) Handle(ctx context.Context, channelID uint, e Event) (*Outcome, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventOrderCancelledByCustomer:
		return r.ProcessOrderCancelled(ctx, channelID, e.ExternalOrderID, e.OccurredAt)
	case EventOrderReturnedToWarehouse:
		o, err := r.MarkReturnedToWarehouse(ctx, channelID, e.ExternalOrderID, e.OccurredAt)
		if err != nil {
			return nil, err
		}
		return &Outcome{OrderID: o.ID, Status: string(o.Status)}, nil
	default:
		return nil, ErrUnsupportedEvent.WithDetail("%s", e.Type)
	}
}

// ProcessOrderCancelled 客户在渠道侧取消
// 未发货的订单直接取消；已发货的订单保持SHIPPED，等仓库签收后再退货
func (r *Reconciler) ProcessOrderCancelled(ctx context.Context, channelID uint, externalOrderID string, occurredAt *time.Time) (*Outcome, error) {
	o, err := r.orders.FindByExternalID(ctx, channelID, externalOrderID)
	if err != nil {
		return nil, err
	}

	if err := r.orders.StampCustomerCancelled(ctx, o.ID, r.at(occurredAt)); err != nil {
		return nil, err
	}

	switch o.Status {
	case order.StatusCreated, order.StatusConfirmed, order.StatusPacked:
		cancelled, err := r.transitions.Cancel(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		r.logger.Info("order cancelled by customer",
			zap.Uint("order_id", o.ID),
			zap.String("external_order_id", externalOrderID),
		)
		return &Outcome{OrderID: o.ID, Status: string(cancelled.Status)}, nil
	case order.StatusShipped:
		r.logger.Info("customer cancelled shipped order, awaiting warehouse",
			zap.Uint("order_id", o.ID),
			zap.String("external_order_id", externalOrderID),
		)
		return &Outcome{OrderID: o.ID, Status: string(o.Status), AwaitingWarehouse: true}, nil
	default:
		return &Outcome{OrderID: o.ID, Status: string(o.Status)}, nil
	}
}

// MarkReturnedToWarehouse 按渠道订单号处理仓库签收
func (r *Reconciler) MarkReturnedToWarehouse(ctx context.Context, channelID uint, externalOrderID string, occurredAt *time.Time) (*order.Order, error) {
	o, err := r.orders.FindByExternalID(ctx, channelID, externalOrderID)
	if err != nil {
		return nil, err
	}
	return r.MarkReturnedToWarehouseByID(ctx, o.ID, occurredAt)
}

// MarkReturnedToWarehouseByID 仓库签收退货
// SHIPPED时执行退货；签收时间无论状态如何都记录，重复调用只刷新时间
func (r *Reconciler) MarkReturnedToWarehouseByID(ctx context.Context, orderID uint, occurredAt *time.Time) (*order.Order, error) {
	o, err := r.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.Status == order.StatusShipped {
		returned, err := r.transitions.Return(ctx, o.ID)
		switch {
		case err == nil:
			o = returned
		case errors.Is(err, order.ErrInvalidStatusTransition):
			// 并发的签收已经完成退货，按重复签收处理
			if o, err = r.orders.FindByID(ctx, orderID); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	at := r.at(occurredAt)
	if err := r.orders.StampWarehouseReceived(ctx, o.ID, at); err != nil {
		return nil, err
	}
	o.WarehouseReceivedAt = &at
	return o, nil
}

func (r *Reconciler) at(occurredAt *time.Time) time.Time {
	if occurredAt != nil && !occurredAt.IsZero() {
		return *occurredAt
	}
	return r.now()
}
