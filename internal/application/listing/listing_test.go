package listing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/omnichannel/internal/testkit"
	"github.com/xiebiao/omnichannel/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/metrics"
)

type env struct {
	store    *memory.Store
	adapter  *testkit.ScriptedAdapter
	create   *CreateListingUseCase
	statuses *StatusService
	bulk     *BulkStatusUseCase
	query    *QueryService
}

func newEnv(t *testing.T, failing ...integration.Operation) *env {
	t.Helper()
	store := memory.NewStore()
	adapter := testkit.NewScriptedAdapter(failing...)
	m := metrics.NewNop()
	log := zap.NewNop()

	dispatcher := appintegration.NewDispatcher(adapter, store.IntegrationLogs(),
		circuitbreaker.NewGroup(circuitbreaker.Settings{FailureThreshold: 1000}), m, log)
	relay := appintegration.NewOutboxRelay(store.Outbox(), dispatcher, appintegration.RelayConfig{Inline: true}, m, log)
	statuses := NewStatusService(store.Products(), store.Channels(), store.Listings(), store.Histories(), store, relay, m, log)

	return &env{
		store:    store,
		adapter:  adapter,
		create:   NewCreateListingUseCase(store.Products(), store.Channels(), store.Listings(), store.Histories(), store, dispatcher, m, log),
		statuses: statuses,
		bulk:     NewBulkStatusUseCase(statuses, m),
		query:    NewQueryService(store.Listings(), store.Histories()),
	}
}

func TestCreateListing(t *testing.T) {
	ctx := context.Background()

	t.Run("首次上架写入历史并通知渠道", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-1")
		ch := testkit.SeedChannel(t, e.store, "shopee")

		l, err := e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID})
		require.NoError(t, err)
		assert.Equal(t, "LISTED", l.Status)
		assert.Equal(t, channel.DefaultMarketplaceSKU(p.ID, ch.ID), l.MarketplaceSKU)
		assert.Equal(t, p.BasePrice, l.CurrentPrice)
		assert.True(t, l.FollowsBasePrice)

		hist, err := e.query.History(ctx, l.ID)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, channel.ListingStatus(""), hist[0].PreviousStatus)
		assert.Equal(t, channel.ListingListed, hist[0].NewStatus)
		assert.Equal(t, InitialListingReason, hist[0].Reason)

		assert.Equal(t, []integration.Operation{integration.OpListProduct}, e.adapter.Operations())
	})

	t.Run("内容不全时列出全部缺失字段，补全后可以上架", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-1", testkit.WithoutContent())
		ch := testkit.SeedChannel(t, e.store, "shopee")

		_, err := e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID})
		require.Error(t, err)
		assert.Equal(t, "PRODUCT_CONTENT_INCOMPLETE:description,metaTitle,metaDescription,images", apperrors.ReasonOf(err))
		assert.Empty(t, e.adapter.Calls())

		p.Description, p.MetaTitle, p.MetaDescription = "d", "t", "m"
		p.Images = []string{"a.jpg"}
		require.NoError(t, e.store.Products().UpdateContent(ctx, p))

		_, err = e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID})
		require.NoError(t, err)
	})

	t.Run("渠道校验", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-1")
		off := testkit.SeedChannel(t, e.store, "off", testkit.Disabled())
		bare := testkit.SeedChannel(t, e.store, "bare", testkit.Unconfigured())

		_, err := e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: 404})
		assert.ErrorIs(t, err, channel.ErrChannelNotFound)
		_, err = e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: off.ID})
		assert.ErrorIs(t, err, channel.ErrChannelDisabled)
		_, err = e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: bare.ID})
		assert.ErrorIs(t, err, channel.ErrChannelNotConfigured)
		_, err = e.create.Execute(ctx, CreateListingRequest{ProductID: 404, ChannelID: off.ID})
		assert.ErrorIs(t, err, product.ErrProductNotFound)
	})

	t.Run("重复上架", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-1")
		ch := testkit.SeedChannel(t, e.store, "shopee")

		_, err := e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID})
		require.NoError(t, err)
		_, err = e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID})
		assert.ErrorIs(t, err, channel.ErrAlreadyListed)
		assert.Len(t, e.adapter.Calls(), 1, "重复上架不调用渠道")
	})

	t.Run("渠道拒绝时什么都不保存", func(t *testing.T) {
		e := newEnv(t, integration.OpListProduct)
		p := testkit.SeedProduct(t, e.store, "SKU-1")
		ch := testkit.SeedChannel(t, e.store, "shopee")

		_, err := e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID})
		assert.ErrorIs(t, err, apperrors.ErrIntegrationFailure)

		listings, err := e.query.ByProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, listings)

		logs, _ := e.store.IntegrationLogs().List(ctx, integration.ListParams{Status: integration.LogFailed})
		assert.Len(t, logs, 1)
	})

	t.Run("指定价格", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-1")
		ch := testkit.SeedChannel(t, e.store, "shopee")
		price := int64(2500)

		l, err := e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID, MarketplaceSKU: "SP-1", Price: &price})
		require.NoError(t, err)
		assert.Equal(t, "SP-1", l.MarketplaceSKU)
		assert.Equal(t, price, l.CurrentPrice)
		assert.False(t, l.FollowsBasePrice)
	})
}

func seedListing(t *testing.T, e *env) (*product.Product, *channel.Channel, *ListingResponse) {
	t.Helper()
	p := testkit.SeedProduct(t, e.store, "SKU-1")
	ch := testkit.SeedChannel(t, e.store, "shopee")
	l, err := e.create.Execute(context.Background(), CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID})
	require.NoError(t, err)
	return p, ch, l
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("下架、暂停、重新上架", func(t *testing.T) {
		e := newEnv(t)
		_, _, l := seedListing(t, e)

		steps := []struct {
			target channel.ListingStatus
			op     integration.Operation
		}{
			{channel.ListingSuspended, integration.OpDelistProduct},
			{channel.ListingListed, integration.OpListProduct},
			{channel.ListingDelisted, integration.OpDelistProduct},
			{channel.ListingListed, integration.OpListProduct},
		}
		for _, step := range steps {
			resp, err := e.statuses.UpdateStatus(ctx, l.ID, step.target, "ops")
			require.NoError(t, err)
			assert.Equal(t, string(step.target), resp.Status)
			ops := e.adapter.Operations()
			assert.Equal(t, step.op, ops[len(ops)-1])
		}

		hist, err := e.query.History(ctx, l.ID)
		require.NoError(t, err)
		require.Len(t, hist, 5)
		assert.Equal(t, channel.ListingListed, hist[1].PreviousStatus)
		assert.Equal(t, channel.ListingSuspended, hist[1].NewStatus)
	})

	t.Run("LISTED到LISTED不合法", func(t *testing.T) {
		e := newEnv(t)
		_, _, l := seedListing(t, e)

		_, err := e.statuses.UpdateStatus(ctx, l.ID, channel.ListingListed, "again")
		assert.ErrorIs(t, err, channel.ErrInvalidListingTransition)

		hist, _ := e.query.History(ctx, l.ID)
		assert.Len(t, hist, 1, "失败不写历史")
	})

	t.Run("渠道停用后不允许变更", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-1")
		ch := testkit.SeedChannel(t, e.store, "shopee")
		l := &channel.Listing{ProductID: p.ID, ChannelID: ch.ID, MarketplaceSKU: "x", Status: channel.ListingListed}
		require.NoError(t, e.store.Listings().Create(ctx, l))

		off := testkit.SeedChannel(t, e.store, "off", testkit.Disabled())
		l2 := &channel.Listing{ProductID: p.ID, ChannelID: off.ID, MarketplaceSKU: "y", Status: channel.ListingListed}
		require.NoError(t, e.store.Listings().Create(ctx, l2))

		_, err := e.statuses.UpdateStatus(ctx, l2.ID, channel.ListingDelisted, "")
		assert.ErrorIs(t, err, channel.ErrChannelDisabled)
	})

	t.Run("内容被清空后不能重新上架", func(t *testing.T) {
		e := newEnv(t)
		p, _, l := seedListing(t, e)
		_, err := e.statuses.UpdateStatus(ctx, l.ID, channel.ListingDelisted, "")
		require.NoError(t, err)

		p.MetaTitle = ""
		require.NoError(t, e.store.Products().UpdateContent(ctx, p))

		_, err = e.statuses.UpdateStatus(ctx, l.ID, channel.ListingListed, "")
		require.Error(t, err)
		assert.Equal(t, "PRODUCT_CONTENT_INCOMPLETE:metaTitle", apperrors.ReasonOf(err))

		got, _ := e.store.Listings().FindByID(ctx, l.ID)
		assert.Equal(t, channel.ListingDelisted, got.Status)
	})

	t.Run("渠道通知失败不回滚状态", func(t *testing.T) {
		e := newEnv(t, integration.OpDelistProduct)
		_, _, l := seedListing(t, e)

		resp, err := e.statuses.UpdateStatus(ctx, l.ID, channel.ListingDelisted, "")
		require.NoError(t, err)
		assert.Equal(t, "DELISTED", resp.Status)

		logs, _ := e.store.IntegrationLogs().List(ctx, integration.ListParams{Status: integration.LogFailed})
		assert.Len(t, logs, 1)
	})

	t.Run("未知状态与不存在的刊登", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.statuses.UpdateStatus(ctx, 1, "ARCHIVED", "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
		_, err = e.statuses.UpdateStatus(ctx, 404, channel.ListingDelisted, "")
		assert.ErrorIs(t, err, channel.ErrListingNotFound)
	})
}

func TestUpdatePrice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	_, _, l := seedListing(t, e)

	price, discount := int64(1800), int64(200)
	follows := false
	resp, err := e.statuses.UpdatePrice(ctx, l.ID, PriceUpdateRequest{
		CurrentPrice:     &price,
		DiscountAmount:   &discount,
		FollowsBasePrice: &follows,
	})
	require.NoError(t, err)
	assert.Equal(t, price, resp.CurrentPrice)
	assert.Equal(t, discount, resp.DiscountAmount)
	assert.Equal(t, int64(0), resp.MarkupAmount)
	assert.Equal(t, "LISTED", resp.Status, "改价不经过状态机")

	calls := e.adapter.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, integration.OpUpdateListingPrice, last.Operation)
	var payload integration.UpdateListingPricePayload
	require.NoError(t, json.Unmarshal(last.Payload, &payload))
	assert.Equal(t, price, payload.CurrentPrice)
	assert.False(t, payload.FollowsBasePrice)

	negative := int64(-1)
	_, err = e.statuses.UpdatePrice(ctx, l.ID, PriceUpdateRequest{MarkupAmount: &negative})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}

func TestBulkStatus(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := testkit.SeedProduct(t, e.store, "SKU-1")

	var ids []uint
	for _, name := range []string{"a", "b", "c"} {
		ch := testkit.SeedChannel(t, e.store, name)
		l, err := e.create.Execute(ctx, CreateListingRequest{ProductID: p.ID, ChannelID: ch.ID})
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	_, err := e.statuses.UpdateStatus(ctx, ids[1], channel.ListingDelisted, "")
	require.NoError(t, err)

	res, err := e.bulk.Execute(ctx, channel.ListingDelisted, "season end", ids)
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[0], ids[2]}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, ids[1], res.Failed[0].ID)
	assert.Equal(t, "INVALID_LISTING_TRANSITION:DELISTED -> DELISTED", res.Failed[0].Reason)

	_, err = e.bulk.Execute(ctx, "GONE", "", ids)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}
