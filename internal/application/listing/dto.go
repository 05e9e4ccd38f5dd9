package listing

import (
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
)

// ListingResponse 渠道商品DTO
type ListingResponse struct {
	ID               uint      `json:"id"`
	ProductID        uint      `json:"productId"`
	ChannelID        uint      `json:"channelId"`
	MarketplaceSKU   string    `json:"marketplaceSku"`
	Status           string    `json:"status"`
	CurrentPrice     int64     `json:"currentPrice"`
	DiscountAmount   int64     `json:"discountAmount"`
	MarkupAmount     int64     `json:"markupAmount"`
	FollowsBasePrice bool      `json:"followsBasePrice"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ToResponse 实体转DTO
func ToResponse(l *channel.Listing) *ListingResponse {
	return &ListingResponse{
		ID:               l.ID,
		ProductID:        l.ProductID,
		ChannelID:        l.ChannelID,
		MarketplaceSKU:   l.MarketplaceSKU,
		Status:           string(l.Status),
		CurrentPrice:     l.CurrentPrice,
		DiscountAmount:   l.DiscountAmount,
		MarkupAmount:     l.MarkupAmount,
		FollowsBasePrice: l.FollowsBasePrice,
		UpdatedAt:        l.UpdatedAt,
	}
}
