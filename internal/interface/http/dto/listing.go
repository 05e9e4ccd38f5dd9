package dto

// CreateListingRequest 商品上架到渠道
type CreateListingRequest struct {
	ProductID      uint   `json:"productId" binding:"required" example:"1"`
	ChannelID      uint   `json:"channelId" binding:"required" example:"1"`
	MarketplaceSKU string `json:"marketplaceSku" binding:"max=128" example:"SHP-1-1"`
	Price          *int64 `json:"price" binding:"omitempty,min=0" example:"1999"` // 分，为空时使用商品基础价
}

// UpdateListingStatusRequest 修改上架状态
type UpdateListingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=LISTED DELISTED SUSPENDED" example:"DELISTED"`
	Reason string `json:"reason" binding:"max=255" example:"季节性下架"`
}

// UpdateListingPriceRequest 价格部分更新，未给出的字段不修改
type UpdateListingPriceRequest struct {
	CurrentPrice     *int64 `json:"currentPrice" binding:"omitempty,min=0" example:"1799"`
	DiscountAmount   *int64 `json:"discountAmount" binding:"omitempty,min=0" example:"200"`
	MarkupAmount     *int64 `json:"markupAmount" binding:"omitempty,min=0" example:"0"`
	FollowsBasePrice *bool  `json:"followsBasePrice" example:"false"`
}

// BulkListingStatusRequest 批量修改上架状态
type BulkListingStatusRequest struct {
	Status     string `json:"status" binding:"required,oneof=LISTED DELISTED SUSPENDED" example:"SUSPENDED"`
	Reason     string `json:"reason" binding:"max=255" example:"促销结束"`
	ListingIDs []uint `json:"listingIds" binding:"required,min=1,max=500"`
}
