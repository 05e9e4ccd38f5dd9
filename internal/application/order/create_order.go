package order

import (
	"context"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/domain/shared"
)

// CreateOrderUseCase 手工录入订单
// 只创建CREATED状态的订单，库存在确认时才预留
type CreateOrderUseCase struct {
	orders    order.Repository
	products  product.Repository
	channels  channel.Repository
	txManager shared.TxManager
}

// NewCreateOrderUseCase 创建下单用例
func NewCreateOrderUseCase(
	orders order.Repository,
	products product.Repository,
	channels channel.Repository,
	txManager shared.TxManager,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orders:    orders,
		products:  products,
		channels:  channels,
		txManager: txManager,
	}
}

// CreateOrderRequest 下单请求DTO
type CreateOrderRequest struct {
	ChannelID       uint
	ExternalOrderID string
	DiscountCode    string
	Items           []CreateOrderItem
}

// CreateOrderItem 订单明细项
type CreateOrderItem struct {
	ProductID uint
	Quantity  int
}

// Execute 执行下单用例
// 单价取商品当前基础价，不信任调用方传入的价格
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, order.ErrInvalidOrderItems
	}

	var result *order.Order
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if _, err := uc.channels.FindByID(txCtx, req.ChannelID); err != nil {
			return err
		}

		ids := make([]uint, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Quantity <= 0 {
				return order.ErrInvalidQuantity
			}
			ids = append(ids, item.ProductID)
		}

		products, err := uc.products.FindByIDs(txCtx, ids)
		if err != nil {
			return err
		}

		items := make([]order.OrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			p, ok := products[item.ProductID]
			if !ok {
				return product.ErrProductNotFound.WithDetail("id=%d", item.ProductID)
			}
			if !p.IsActive() {
				return product.ErrProductInactive.WithDetail("sku=%s", p.SKU)
			}
			items = append(items, order.OrderItem{
				ProductID: p.ID,
				Quantity:  item.Quantity,
				UnitPrice: p.BasePrice,
			})
		}

		o, err := order.NewOrder(req.ChannelID, req.ExternalOrderID, items, req.DiscountCode)
		if err != nil {
			return err
		}
		if err := uc.orders.Create(txCtx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ToResponse(result), nil
}
