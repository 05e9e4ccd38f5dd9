package order

import (
	"context"
	"sort"

	"go.uber.org/zap"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	"github.com/xiebiao/omnichannel/internal/domain/shared"
	"github.com/xiebiao/omnichannel/pkg/metrics"
)

// TransitionService 订单状态机
//
// 每次变更在一个事务内完成：锁订单行 → 查流转表 → 逐项改库存并写流水 → 写状态 → 写发件箱。
// 提交后再通知渠道，通知失败不影响已提交的变更。
type TransitionService struct {
	orders  order.Repository
	ledger  *inventory.Ledger
	tx      shared.TxManager
	relay   *appintegration.OutboxRelay
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTransitionService 创建订单状态机
func NewTransitionService(
	orders order.Repository,
	ledger *inventory.Ledger,
	tx shared.TxManager,
	relay *appintegration.OutboxRelay,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TransitionService {
	return &TransitionService{
		orders:  orders,
		ledger:  ledger,
		tx:      tx,
		relay:   relay,
		metrics: m,
		logger:  logger,
	}
}

// stockEffect 状态变更的库存副作用，from是变更前的状态
type stockEffect func(ctx context.Context, o *order.Order, from order.Status) error

// Confirm CREATED→CONFIRMED，逐项预留库存
func (s *TransitionService) Confirm(ctx context.Context, orderID uint) (*order.Order, error) {
	return s.transition(ctx, orderID, order.StatusConfirmed, integration.OpConfirmOrder, s.eachItem(s.ledger.Reserve))
}

// Cancel 取消订单；已确认或已打包的订单释放预留
func (s *TransitionService) Cancel(ctx context.Context, orderID uint) (*order.Order, error) {
	release := s.eachItem(s.ledger.Release)
	return s.transition(ctx, orderID, order.StatusCancelled, integration.OpCancelOrder,
		func(ctx context.Context, o *order.Order, from order.Status) error {
			if from != order.StatusConfirmed && from != order.StatusPacked {
				return nil
			}
			return release(ctx, o, from)
		})
}

// Pack CONFIRMED→PACKED
func (s *TransitionService) Pack(ctx context.Context, orderID uint) (*order.Order, error) {
	return s.transition(ctx, orderID, order.StatusPacked, integration.OpPackOrder, nil)
}

// Ship PACKED→SHIPPED
func (s *TransitionService) Ship(ctx context.Context, orderID uint) (*order.Order, error) {
	return s.transition(ctx, orderID, order.StatusShipped, integration.OpShipOrder, nil)
}

// Return SHIPPED→RETURNED，货物回到仓库
func (s *TransitionService) Return(ctx context.Context, orderID uint) (*order.Order, error) {
	return s.transition(ctx, orderID, order.StatusReturned, integration.OpReturnOrder, s.eachItem(s.ledger.Restock))
}

// Deliver SHIPPED→DELIVERED，货物离开账本；渠道侧没有对应操作
func (s *TransitionService) Deliver(ctx context.Context, orderID uint) (*order.Order, error) {
	return s.transition(ctx, orderID, order.StatusDelivered, "", s.eachItem(s.ledger.Consume))
}

// eachItem 按商品ID顺序逐项执行，固定加锁顺序
func (s *TransitionService) eachItem(fn func(ctx context.Context, productID uint, qty int, ref string) error) stockEffect {
	return func(ctx context.Context, o *order.Order, _ order.Status) error {
		items := append([]order.OrderItem(nil), o.Items...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
		for _, it := range items {
			if err := fn(ctx, it.ProductID, it.Quantity, o.Reference()); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *TransitionService) transition(ctx context.Context, orderID uint, target order.Status, op integration.Operation, effect stockEffect) (*order.Order, error) {
	var (
		result   *order.Order
		intentID string
	)
	err := s.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := s.orders.LockByID(txCtx, orderID)
		if err != nil {
			return err
		}

		from := o.Status
		if err := o.TransitionTo(target); err != nil {
			return err
		}

		if effect != nil {
			if err := effect(txCtx, o, from); err != nil {
				return err
			}
		}

		if err := s.orders.UpdateStatus(txCtx, o.ID, o.Status); err != nil {
			return err
		}

		if op != "" {
			payload := integration.NewOrderPayload(op, o.ID, o.ExternalOrderID, string(o.Status))
			if intentID, err = s.relay.Enqueue(txCtx, o.ChannelID, payload); err != nil {
				return err
			}
		}

		result = o
		return nil
	})

	s.metrics.OrderTransitionsTotal.WithLabelValues(string(target), metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Info("order transitioned",
		zap.Uint("order_id", result.ID),
		zap.String("to", string(result.Status)),
	)

	if intentID != "" {
		s.relay.Flush(ctx, intentID)
	}
	return result, nil
}
