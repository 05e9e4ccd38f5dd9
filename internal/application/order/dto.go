package order

import (
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/order"
)

// OrderResponse 订单响应DTO
type OrderResponse struct {
	ID                  uint                `json:"id"`
	ChannelID           uint                `json:"channelId"`
	ExternalOrderID     string              `json:"externalOrderId"`
	Status              string              `json:"status"`
	TotalAmount         int64               `json:"totalAmount"` // 分
	DiscountCode        string              `json:"discountCode,omitempty"`
	Items               []OrderItemResponse `json:"items"`
	CustomerCancelledAt *time.Time          `json:"customerCancelledAt,omitempty"`
	WarehouseReceivedAt *time.Time          `json:"warehouseReceivedAt,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// OrderItemResponse 订单明细DTO
type OrderItemResponse struct {
	ProductID  uint  `json:"productId"`
	Quantity   int   `json:"quantity"`
	UnitPrice  int64 `json:"unitPrice"`
	TotalPrice int64 `json:"totalPrice"`
}

// ToResponse 实体转DTO
func ToResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}
	return &OrderResponse{
		ID:                  o.ID,
		ChannelID:           o.ChannelID,
		ExternalOrderID:     o.ExternalOrderID,
		Status:              string(o.Status),
		TotalAmount:         o.TotalAmount,
		DiscountCode:        o.DiscountCode,
		Items:               items,
		CustomerCancelledAt: o.CustomerCancelledAt,
		WarehouseReceivedAt: o.WarehouseReceivedAt,
		CreatedAt:           o.CreatedAt,
	}
}
