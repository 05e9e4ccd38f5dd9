package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/domain/shared"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// pulledSequences 每次拉单生成的渠道订单号后缀
var pulledSequences = []string{"A", "B"}

// PullOrdersUseCase 从渠道拉取新订单
// 渠道调用是审计用的占位，订单号按天确定，同一天重复拉取不会重复创建
type PullOrdersUseCase struct {
	channels   channel.Repository
	products   product.Repository
	orders     order.Repository
	txManager  shared.TxManager
	dispatcher *appintegration.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewPullOrdersUseCase 创建拉单用例
func NewPullOrdersUseCase(
	channels channel.Repository,
	products product.Repository,
	orders order.Repository,
	txManager shared.TxManager,
	dispatcher *appintegration.Dispatcher,
	logger *zap.Logger,
) *PullOrdersUseCase {
	return &PullOrdersUseCase{
		channels:   channels,
		products:   products,
		orders:     orders,
		txManager:  txManager,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// PullResult 单个渠道的拉单结果，Created/Skipped 是数量，OrderIDs 是本次新建的订单
type PullResult struct {
	ChannelID uint   `json:"channelId"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
	OrderIDs  []uint `json:"orderIds"`
	Error     string `json:"error,omitempty"`
}

// Execute 拉取指定渠道
func (uc *PullOrdersUseCase) Execute(ctx context.Context, channelID uint) (*PullResult, error) {
	ch, err := uc.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if err := ch.EnsureEnabled(); err != nil {
		return nil, err
	}
	return uc.pull(ctx, ch)
}

// ExecuteAll 依次拉取全部启用渠道，单个渠道失败记录在结果里
func (uc *PullOrdersUseCase) ExecuteAll(ctx context.Context) ([]*PullResult, error) {
	channels, err := uc.channels.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*PullResult, 0, len(channels))
	for _, ch := range channels {
		res, err := uc.pull(ctx, ch)
		if err != nil {
			uc.logger.Warn("pull orders failed", zap.Uint("channel_id", ch.ID), zap.Error(err))
			res = &PullResult{ChannelID: ch.ID, OrderIDs: []uint{}, Error: apperrors.ReasonOf(err)}
		}
		results = append(results, res)
	}
	return results, nil
}

func (uc *PullOrdersUseCase) pull(ctx context.Context, ch *channel.Channel) (*PullResult, error) {
	now := uc.now()
	if _, err := uc.dispatcher.Dispatch(ctx, ch.ID, integration.PullPayload{
		Op:          integration.OpPullOrders,
		ChannelID:   ch.ID,
		TriggeredAt: now,
	}); err != nil {
		return nil, err
	}

	res := &PullResult{ChannelID: ch.ID, OrderIDs: []uint{}}
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		p, err := uc.products.FirstActive(txCtx)
		if err != nil {
			return err
		}

		for _, seq := range pulledSequences {
			externalID := order.PulledExternalID(ch.Name, now, seq)
			exists, err := uc.orders.ExistsByExternalID(txCtx, ch.ID, externalID)
			if err != nil {
				return err
			}
			if exists {
				res.Skipped++
				continue
			}

			o, err := order.NewOrder(ch.ID, externalID, []order.OrderItem{
				{ProductID: p.ID, Quantity: 1, UnitPrice: p.BasePrice},
			}, "")
			if err != nil {
				return err
			}
			if err := uc.orders.Create(txCtx, o); err != nil {
				return err
			}
			res.Created++
			res.OrderIDs = append(res.OrderIDs, o.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("orders pulled",
		zap.Uint("channel_id", ch.ID),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
