package order

import (
	"context"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/order"
)

// DocumentService 面单与发票，只调用渠道不改订单状态
type DocumentService struct {
	orders     order.Repository
	dispatcher *appintegration.Dispatcher
}

// NewDocumentService 创建单据服务
func NewDocumentService(orders order.Repository, dispatcher *appintegration.Dispatcher) *DocumentService {
	return &DocumentService{orders: orders, dispatcher: dispatcher}
}

// GenerateShippingLabel 同步请求渠道生成面单
func (s *DocumentService) GenerateShippingLabel(ctx context.Context, orderID uint) (*appintegration.Result, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Dispatch(ctx, o.ChannelID, integration.ShippingLabelPayload{
		OrderID:         o.ID,
		ExternalOrderID: o.ExternalOrderID,
	})
}

// GenerateInvoice 同步请求渠道生成发票
func (s *DocumentService) GenerateInvoice(ctx context.Context, orderID uint) (*appintegration.Result, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Dispatch(ctx, o.ChannelID, integration.InvoicePayload{
		OrderID:         o.ID,
		ExternalOrderID: o.ExternalOrderID,
		TotalAmount:     o.TotalAmount,
	})
}
