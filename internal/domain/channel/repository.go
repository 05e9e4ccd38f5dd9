package channel

import (
	"context"
)

// Repository 渠道仓储
type Repository interface {
	Create(ctx context.Context, ch *Channel) error
	FindByID(ctx context.Context, id uint) (*Channel, error)
	// ListEnabled 启用的渠道，按名称排序
	ListEnabled(ctx context.Context) ([]*Channel, error)
}

// ListingRepository 渠道商品仓储
type ListingRepository interface {
	// Create 创建刊登，(product, channel)重复时返回ErrAlreadyListed
	Create(ctx context.Context, l *Listing) error
	FindByID(ctx context.Context, id uint) (*Listing, error)
	LockByID(ctx context.Context, id uint) (*Listing, error)
	FindByProductAndChannel(ctx context.Context, productID, channelID uint) (*Listing, error)
	UpdateStatus(ctx context.Context, id uint, status ListingStatus) error
	UpdatePrice(ctx context.Context, l *Listing) error
	ListByProduct(ctx context.Context, productID uint) ([]*Listing, error)
}

// HistoryRepository 刊登状态历史，只追加
type HistoryRepository interface {
	Create(ctx context.Context, h *ListingHistory) error
	ListByListing(ctx context.Context, listingID uint) ([]*ListingHistory, error)
}
