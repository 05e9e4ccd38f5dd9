package listing

import (
	"context"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
)

// QueryService 刊登查询
type QueryService struct {
	listings  channel.ListingRepository
	histories channel.HistoryRepository
}

// NewQueryService 创建查询服务
func NewQueryService(listings channel.ListingRepository, histories channel.HistoryRepository) *QueryService {
	return &QueryService{listings: listings, histories: histories}
}

// History 状态变更历史，按时间正序
func (q *QueryService) History(ctx context.Context, listingID uint) ([]*channel.ListingHistory, error) {
	if _, err := q.listings.FindByID(ctx, listingID); err != nil {
		return nil, err
	}
	return q.histories.ListByListing(ctx, listingID)
}

// ByProduct 商品在各渠道的刊登
func (q *QueryService) ByProduct(ctx context.Context, productID uint) ([]*ListingResponse, error) {
	listings, err := q.listings.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := make([]*ListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, ToResponse(l))
	}
	return out, nil
}
