package listing

import (
	"context"
	"errors"
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

// InitialListingReason 首次上架的历史原因
const InitialListingReason = "initial listing"

// CreateListingUseCase 商品首次刊登到渠道
// 先同步通知渠道，渠道接受后才落库；渠道拒绝时什么都不保存
type CreateListingUseCase struct {
	products   product.Repository
	channels   channel.Repository
	listings   channel.ListingRepository
	histories  channel.HistoryRepository
	txManager  shared.TxManager
	dispatcher *appintegration.Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewCreateListingUseCase 创建刊登用例
func NewCreateListingUseCase(
	products product.Repository,
	channels channel.Repository,
	listings channel.ListingRepository,
	histories channel.HistoryRepository,
	txManager shared.TxManager,
	dispatcher *appintegration.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CreateListingUseCase {
	return &CreateListingUseCase{
		products:   products,
		channels:   channels,
		listings:   listings,
		histories:  histories,
		txManager:  txManager,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
	}
}

// CreateListingRequest 刊登请求
// MarketplaceSKU为空时使用<productID>-<channelID>；Price为空时跟随商品基础价
type CreateListingRequest struct {
	ProductID      uint
	ChannelID      uint
	MarketplaceSKU string
	Price          *int64
}

// Execute 执行刊登
func (uc *CreateListingUseCase) Execute(ctx context.Context, req CreateListingRequest) (*ListingResponse, error) {
	p, err := uc.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := product.EnsureListable(p); err != nil {
		return nil, err
	}

	ch, err := uc.channels.FindByID(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if err := ch.EnsureEnabled(); err != nil {
		return nil, err
	}
	if !ch.IsConfigured() {
		return nil, channel.ErrChannelNotConfigured.WithDetail("channel=%s", ch.Name)
	}

	if _, err := uc.listings.FindByProductAndChannel(ctx, p.ID, ch.ID); err == nil {
		return nil, channel.ErrAlreadyListed.WithDetail("product=%d,channel=%d", p.ID, ch.ID)
	} else if !errors.Is(err, channel.ErrListingNotFound) {
		return nil, err
	}

	l := &channel.Listing{
		ProductID:        p.ID,
		ChannelID:        ch.ID,
		MarketplaceSKU:   req.MarketplaceSKU,
		Status:           channel.ListingListed,
		CurrentPrice:     p.BasePrice,
		FollowsBasePrice: true,
	}
	if l.MarketplaceSKU == "" {
		l.MarketplaceSKU = channel.DefaultMarketplaceSKU(p.ID, ch.ID)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, apperrors.ErrInvalidParams.WithDetail("price must not be negative")
		}
		l.CurrentPrice = *req.Price
		l.FollowsBasePrice = false
	}

	if _, err := uc.dispatcher.Dispatch(ctx, ch.ID, integration.ListProductPayload{
		ProductID:      p.ID,
		SKU:            p.SKU,
		MarketplaceSKU: l.MarketplaceSKU,
		Title:          p.Name,
		Price:          l.CurrentPrice,
		Reason:         InitialListingReason,
	}); err != nil {
		uc.metrics.ListingTransitionsTotal.WithLabelValues(string(channel.ListingListed), "failure").Inc()
		return nil, err
	}

	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if err := uc.listings.Create(txCtx, l); err != nil {
			return err
		}
		return uc.histories.Create(txCtx, &channel.ListingHistory{
			ListingID: l.ID,
			NewStatus: channel.ListingListed,
			Reason:    InitialListingReason,
			CreatedAt: time.Now(),
		})
	})
	uc.metrics.ListingTransitionsTotal.WithLabelValues(string(channel.ListingListed), metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	uc.logger.Info("product listed",
		zap.Uint("listing_id", l.ID),
		zap.Uint("product_id", p.ID),
		zap.Uint("channel_id", ch.ID),
	)
	return ToResponse(l), nil
}
