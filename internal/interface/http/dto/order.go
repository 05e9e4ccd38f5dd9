package dto

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	ChannelID       uint                     `json:"channelId" binding:"required" example:"1"`
	ExternalOrderID string                   `json:"externalOrderId" binding:"required,max=128" example:"SHP-20260301-0001"`
	DiscountCode    string                   `json:"discountCode" binding:"max=64" example:"SPRING10"`
	Items           []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderItemRequest 订单明细
type CreateOrderItemRequest struct {
	ProductID uint `json:"productId" binding:"required" example:"1"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// ListOrdersQuery 订单列表查询参数
type ListOrdersQuery struct {
	Status    string `form:"status" example:"CONFIRMED"`
	ChannelID uint   `form:"channelId" example:"1"`
	Page      int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize  int    `form:"pageSize" binding:"omitempty,min=1,max=100" example:"25"`
}

// OrderActionRequest 单个订单动作
// action: confirm, cancel, pack, ship, deliver, return, warehouse_received,
// generate_shipping_label, generate_invoice
type OrderActionRequest struct {
	Action string `json:"action" binding:"required" example:"confirm"`
}

// BulkOrderActionRequest 批量订单动作，只支持 confirm/cancel/pack/ship
type BulkOrderActionRequest struct {
	Action   string `json:"action" binding:"required,oneof=confirm cancel pack ship" example:"confirm"`
	OrderIDs []uint `json:"orderIds" binding:"required,min=1,max=500"`
}
