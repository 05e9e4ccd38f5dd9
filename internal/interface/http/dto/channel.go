package dto

// ChannelEventRequest 渠道推送的订单事件
type ChannelEventRequest struct {
	Type            string `json:"type" binding:"required" example:"ORDER_CANCELLED_BY_CUSTOMER"`
	ExternalOrderID string `json:"externalOrderId" binding:"required" example:"SHP-20260301-0001"`
	OccurredAt      string `json:"occurredAt" example:"2026-03-01T08:00:00Z"` // ISO-8601，可选
}
