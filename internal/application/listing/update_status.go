package listing

import (
	"context"
	"time"

	"go.uber.org/zap"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/domain/shared"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/metrics"
)

// StatusService 刊登状态机
type StatusService struct {
	products  product.Repository
	channels  channel.Repository
	listings  channel.ListingRepository
	histories channel.HistoryRepository
	txManager shared.TxManager
	relay     *appintegration.OutboxRelay
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewStatusService 创建刊登状态机
func NewStatusService(
	products product.Repository,
	channels channel.Repository,
	listings channel.ListingRepository,
	histories channel.HistoryRepository,
	txManager shared.TxManager,
	relay *appintegration.OutboxRelay,
	m *metrics.Metrics,
	logger *zap.Logger,
) *StatusService {
	return &StatusService{
		products:  products,
		channels:  channels,
		listings:  listings,
		histories: histories,
		txManager: txManager,
		relay:     relay,
		metrics:   m,
		logger:    logger,
	}
}

// UpdateStatus 变更刊登状态
// 事务内：锁刊登 → 渠道启用 → 查流转表 → 重新上架时检查内容 → 写发件箱、历史、状态
func (s *StatusService) UpdateStatus(ctx context.Context, listingID uint, target channel.ListingStatus, reason string) (*ListingResponse, error) {
	if !target.Valid() {
		return nil, apperrors.ErrInvalidParams.WithDetail("unknown listing status %s", target)
	}

	var (
		result   *channel.Listing
		intentID string
	)
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		l, err := s.listings.LockByID(txCtx, listingID)
		if err != nil {
			return err
		}

		ch, err := s.channels.FindByID(txCtx, l.ChannelID)
		if err != nil {
			return err
		}
		if err := ch.EnsureEnabled(); err != nil {
			return err
		}

		prev, err := l.TransitionTo(target)
		if err != nil {
			return err
		}

		p, err := s.products.FindByID(txCtx, l.ProductID)
		if err != nil {
			return err
		}

		var payload integration.Payload
		if target == channel.ListingListed {
			if err := product.EnsureListable(p); err != nil {
				return err
			}
			payload = integration.ListProductPayload{
				ListingID:      l.ID,
				ProductID:      p.ID,
				SKU:            p.SKU,
				MarketplaceSKU: l.MarketplaceSKU,
				Title:          p.Name,
				Price:          l.CurrentPrice,
				Reason:         reason,
			}
		} else {
			payload = integration.DelistProductPayload{
				ListingID:      l.ID,
				ProductID:      p.ID,
				MarketplaceSKU: l.MarketplaceSKU,
				Status:         string(target),
				Reason:         reason,
			}
		}

		if intentID, err = s.relay.Enqueue(txCtx, l.ChannelID, payload); err != nil {
			return err
		}
		if err := s.histories.Create(txCtx, &channel.ListingHistory{
			ListingID:      l.ID,
			PreviousStatus: prev,
			NewStatus:      target,
			Reason:         reason,
			CreatedAt:      time.Now(),
		}); err != nil {
			return err
		}
		if err := s.listings.UpdateStatus(txCtx, l.ID, target); err != nil {
			return err
		}

		result = l
		return nil
	})

	s.metrics.ListingTransitionsTotal.WithLabelValues(string(target), metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.relay.Flush(ctx, intentID)
	return ToResponse(result), nil
}

// PriceUpdateRequest 价格的部分更新，nil字段不修改
type PriceUpdateRequest = channel.PriceUpdate

// UpdatePrice 修改刊登价格，不经过状态机；提交后通知渠道
func (s *StatusService) UpdatePrice(ctx context.Context, listingID uint, req PriceUpdateRequest) (*ListingResponse, error) {
	for _, v := range []*int64{req.CurrentPrice, req.DiscountAmount, req.MarkupAmount} {
		if v != nil && *v < 0 {
			return nil, apperrors.ErrInvalidParams.WithDetail("price fields must not be negative")
		}
	}

	var (
		result   *channel.Listing
		intentID string
	)
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		l, err := s.listings.LockByID(txCtx, listingID)
		if err != nil {
			return err
		}

		l.ApplyPrice(req)
		if err := s.listings.UpdatePrice(txCtx, l); err != nil {
			return err
		}

		intentID, err = s.relay.Enqueue(txCtx, l.ChannelID, integration.UpdateListingPricePayload{
			ListingID:        l.ID,
			MarketplaceSKU:   l.MarketplaceSKU,
			CurrentPrice:     l.CurrentPrice,
			DiscountAmount:   l.DiscountAmount,
			MarkupAmount:     l.MarkupAmount,
			FollowsBasePrice: l.FollowsBasePrice,
		})
		if err != nil {
			return err
		}

		result = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.relay.Flush(ctx, intentID)
	return ToResponse(result), nil
}
