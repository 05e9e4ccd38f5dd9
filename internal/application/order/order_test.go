package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/omnichannel/internal/testkit"
	"github.com/xiebiao/omnichannel/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/metrics"
)

type env struct {
	store       *memory.Store
	adapter     *testkit.ScriptedAdapter
	transitions *TransitionService
	create      *CreateOrderUseCase
	documents   *DocumentService
	bulk        *BulkActionUseCase
	query       *QueryService
	pull        *PullOrdersUseCase
	channelID   uint
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
	ledger := inventory.NewLedger(store.Products(), store.Movements())
	transitions := NewTransitionService(store.Orders(), ledger, store, relay, m, log)

	ch := testkit.SeedChannel(t, store, "shopee")
	return &env{
		store:       store,
		adapter:     adapter,
		transitions: transitions,
		create:      NewCreateOrderUseCase(store.Orders(), store.Products(), store.Channels(), store),
		documents:   NewDocumentService(store.Orders(), dispatcher),
		bulk:        NewBulkActionUseCase(transitions, m),
		query:       NewQueryService(store.Orders(), store.Movements()),
		pull:        NewPullOrdersUseCase(store.Channels(), store.Products(), store.Orders(), store, dispatcher, log),
		channelID:   ch.ID,
	}
}

var extSeq int

func (e *env) newOrder(t *testing.T, productID uint, qty int) uint {
	t.Helper()
	extSeq++
	resp, err := e.create.Execute(context.Background(), CreateOrderRequest{
		ChannelID:       e.channelID,
		ExternalOrderID: fmt.Sprintf("EXT-%d", extSeq),
		Items:           []CreateOrderItem{{ProductID: productID, Quantity: qty}},
	})
	require.NoError(t, err)
	return resp.ID
}

func (e *env) status(t *testing.T, id uint) order.Status {
	t.Helper()
	o, err := e.store.Orders().FindByID(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func (e *env) movements(t *testing.T, orderID uint) []*inventory.Movement {
	t.Helper()
	ms, err := e.query.Movements(context.Background(), orderID)
	require.NoError(t, err)
	return ms
}

func TestConfirm_OutOfStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1", testkit.WithStock(50, 2))
	id := e.newOrder(t, p.ID, 60)

	_, err := e.transitions.Confirm(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, product.ErrOutOfStock)
	assert.Equal(t, "OUT_OF_STOCK:sku=SKU-1,available=48,requested=60", apperrors.ReasonOf(err))

	assert.Equal(t, order.StatusCreated, e.status(t, id))
	after := testkit.Product(t, e.store, p.ID)
	assert.Equal(t, 50, after.TotalStock)
	assert.Equal(t, 2, after.ReservedStock)
	assert.Empty(t, e.movements(t, id))
	assert.Empty(t, e.adapter.Calls(), "失败的变更不通知渠道")
}

func TestConfirmThenCancel_RestoresReservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1", testkit.WithStock(10, 1))
	id := e.newOrder(t, p.ID, 3)

	_, err := e.transitions.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, testkit.Product(t, e.store, p.ID).ReservedStock)

	o, err := e.transitions.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)

	after := testkit.Product(t, e.store, p.ID)
	assert.Equal(t, 1, after.ReservedStock)
	assert.Equal(t, 10, after.TotalStock)

	ms := e.movements(t, id)
	require.Len(t, ms, 2)
	assert.Equal(t, inventory.MovementConfirm, ms[0].Type)
	assert.Equal(t, 3, ms[0].Quantity)
	assert.Equal(t, inventory.MovementCancel, ms[1].Type)
	assert.Equal(t, -3, ms[1].Quantity)

	assert.Equal(t, []integration.Operation{integration.OpConfirmOrder, integration.OpCancelOrder}, e.adapter.Operations())
}

func TestCancelCreated_NoInventoryEffect(t *testing.T) {
	e := newEnv(t)
	p := testkit.SeedProduct(t, e.store, "SKU-1", testkit.WithStock(10, 0))
	id := e.newOrder(t, p.ID, 3)

	_, err := e.transitions.Cancel(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, e.movements(t, id))
	assert.Equal(t, 0, testkit.Product(t, e.store, p.ID).ReservedStock)
}

func TestShipThenReturn_RestocksGoods(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1", testkit.WithStock(10, 0))
	id := e.newOrder(t, p.ID, 2)

	for _, step := range []func(context.Context, uint) (*order.Order, error){
		e.transitions.Confirm, e.transitions.Pack, e.transitions.Ship, e.transitions.Return,
	} {
		_, err := step(ctx, id)
		require.NoError(t, err)
	}

	assert.Equal(t, order.StatusReturned, e.status(t, id))
	after := testkit.Product(t, e.store, p.ID)
	assert.Equal(t, 0, after.ReservedStock)
	assert.Equal(t, 12, after.TotalStock)

	ms := e.movements(t, id)
	require.Len(t, ms, 2)
	assert.Equal(t, inventory.MovementReturn, ms[1].Type)
	assert.Equal(t, 2, ms[1].Quantity)
}

func TestDeliver_ConsumesReservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1", testkit.WithStock(10, 0))
	id := e.newOrder(t, p.ID, 4)

	for _, step := range []func(context.Context, uint) (*order.Order, error){
		e.transitions.Confirm, e.transitions.Pack, e.transitions.Ship, e.transitions.Deliver,
	} {
		_, err := step(ctx, id)
		require.NoError(t, err)
	}

	after := testkit.Product(t, e.store, p.ID)
	assert.Equal(t, 0, after.ReservedStock)
	assert.Equal(t, 6, after.TotalStock)
	assert.NotContains(t, e.adapter.Operations(), integration.Operation("DELIVER_ORDER"))
	assert.Len(t, e.adapter.Calls(), 3)
}

func TestInvalidTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1")

	tests := []struct {
		name  string
		setup []func(context.Context, uint) (*order.Order, error)
		act   func(context.Context, uint) (*order.Order, error)
	}{
		{"CREATED不能打包", nil, e.transitions.Pack},
		{"CREATED不能发货", nil, e.transitions.Ship},
		{"CONFIRMED不能退货", []func(context.Context, uint) (*order.Order, error){e.transitions.Confirm}, e.transitions.Return},
		{"SHIPPED不能取消", []func(context.Context, uint) (*order.Order, error){e.transitions.Confirm, e.transitions.Pack, e.transitions.Ship}, e.transitions.Cancel},
		{"CANCELLED不能再次取消", []func(context.Context, uint) (*order.Order, error){e.transitions.Cancel}, e.transitions.Cancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := e.newOrder(t, p.ID, 1)
			for _, step := range tt.setup {
				_, err := step(ctx, id)
				require.NoError(t, err)
			}
			before := e.status(t, id)
			reserved := testkit.Product(t, e.store, p.ID).ReservedStock

			_, err := tt.act(ctx, id)
			assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
			assert.Equal(t, before, e.status(t, id))
			assert.Equal(t, reserved, testkit.Product(t, e.store, p.ID).ReservedStock)
		})
	}

	t.Run("订单不存在", func(t *testing.T) {
		_, err := e.transitions.Confirm(ctx, 9999)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestOversellPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("LIMITED允许超卖到上限", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-L", testkit.WithStock(5, 0), testkit.WithPolicy(product.OversellLimited, 3))

		_, err := e.transitions.Confirm(ctx, e.newOrder(t, p.ID, 8))
		require.NoError(t, err)
		assert.Equal(t, -3, testkit.Product(t, e.store, p.ID).Available())

		_, err = e.transitions.Confirm(ctx, e.newOrder(t, p.ID, 1))
		assert.ErrorIs(t, err, product.ErrOversaleLimitExceeded)
	})

	t.Run("UNRESTRICTED不限制", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-U", testkit.WithStock(0, 0), testkit.WithPolicy(product.OversellUnrestricted, 0))

		_, err := e.transitions.Confirm(ctx, e.newOrder(t, p.ID, 100))
		require.NoError(t, err)
		assert.Equal(t, 100, testkit.Product(t, e.store, p.ID).ReservedStock)
	})
}

func TestConfirm_ConcurrentNeverOversells(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-HOT", testkit.WithStock(10, 0))

	ids := make([]uint, 25)
	for i := range ids {
		ids[i] = e.newOrder(t, p.ID, 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if _, err := e.transitions.Confirm(ctx, id); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	after := testkit.Product(t, e.store, p.ID)
	assert.Equal(t, 10, after.ReservedStock)
	assert.Equal(t, 0, after.Available())
}

func TestIntegrationFailureDoesNotRollback(t *testing.T) {
	e := newEnv(t, integration.OpConfirmOrder)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1", testkit.WithStock(10, 0))
	id := e.newOrder(t, p.ID, 1)

	o, err := e.transitions.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, 1, testkit.Product(t, e.store, p.ID).ReservedStock)

	logs, err := e.store.IntegrationLogs().List(ctx, integration.ListParams{Status: integration.LogFailed})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, integration.OpConfirmOrder, logs[0].Operation)

	pending, err := e.store.Outbox().ListByStatus(ctx, integration.IntentPending, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "留给worker重试")
}

func TestBulkAction(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1", testkit.WithStock(100, 0))

	ids := []uint{e.newOrder(t, p.ID, 1), e.newOrder(t, p.ID, 1), e.newOrder(t, p.ID, 1)}
	_, err := e.transitions.Cancel(ctx, ids[1])
	require.NoError(t, err)

	t.Run("单项失败不影响其他项", func(t *testing.T) {
		res, err := e.bulk.Execute(ctx, ActionConfirm, ids)
		require.NoError(t, err)
		assert.Equal(t, []uint{ids[0], ids[2]}, res.Succeeded)
		require.Len(t, res.Failed, 1)
		assert.Equal(t, ids[1], res.Failed[0].ID)
		assert.Equal(t, "INVALID_ORDER_STATE:CANCELLED -> CONFIRMED", res.Failed[0].Reason)
		assert.Equal(t, order.StatusConfirmed, e.status(t, ids[0]))
		assert.Equal(t, order.StatusConfirmed, e.status(t, ids[2]))
	})

	t.Run("不存在的订单记为失败", func(t *testing.T) {
		res, err := e.bulk.Execute(ctx, ActionPack, []uint{ids[0], 4242})
		require.NoError(t, err)
		assert.Equal(t, []uint{ids[0]}, res.Succeeded)
		assert.Equal(t, "ORDER_NOT_FOUND", res.Failed[0].Reason)
	})

	t.Run("不支持的批量操作", func(t *testing.T) {
		_, err := e.bulk.Execute(ctx, ActionReturn, ids)
		assert.ErrorIs(t, err, order.ErrUnsupportedAction)
	})
}

type fakeWarehouse struct{ calls []uint }

func (f *fakeWarehouse) MarkReturnedToWarehouseByID(_ context.Context, orderID uint, _ *time.Time) (*order.Order, error) {
	f.calls = append(f.calls, orderID)
	return &order.Order{ID: orderID, Status: order.StatusReturned}, nil
}

func TestActionService(t *testing.T) {
	e := newEnv(t, integration.OpGenerateInvoice)
	ctx := context.Background()
	wh := &fakeWarehouse{}
	svc := NewActionService(e.transitions, e.documents, wh, e.store.Orders())
	p := testkit.SeedProduct(t, e.store, "SKU-1")
	id := e.newOrder(t, p.ID, 1)

	t.Run("状态操作", func(t *testing.T) {
		resp, err := svc.Execute(ctx, id, "CONFIRM")
		require.NoError(t, err)
		assert.Equal(t, "CONFIRMED", resp.Order.Status)
	})

	t.Run("面单返回渠道响应且不改状态", func(t *testing.T) {
		resp, err := svc.Execute(ctx, id, ActionGenerateShippingLabel)
		require.NoError(t, err)
		assert.Equal(t, "CONFIRMED", resp.Order.Status)
		assert.JSONEq(t, `{"message":"Simulated call","operation":"GENERATE_SHIPPING_LABEL"}`, string(resp.Document))
	})

	t.Run("发票失败返回INTEGRATION_FAILURE并留下FAILED日志", func(t *testing.T) {
		_, err := svc.Execute(ctx, id, ActionGenerateInvoice)
		assert.ErrorIs(t, err, apperrors.ErrIntegrationFailure)

		logs, _ := e.store.IntegrationLogs().List(ctx, integration.ListParams{Operation: integration.OpGenerateInvoice})
		require.Len(t, logs, 1)
		assert.Equal(t, integration.LogFailed, logs[0].Status)
	})

	t.Run("仓库签收交给对账服务", func(t *testing.T) {
		_, err := svc.Execute(ctx, id, ActionWarehouseReceived)
		require.NoError(t, err)
		assert.Equal(t, []uint{id}, wh.calls)
	})

	t.Run("未知操作被拒绝", func(t *testing.T) {
		_, err := svc.Execute(ctx, id, "teleport")
		assert.ErrorIs(t, err, order.ErrUnsupportedAction)
		assert.Equal(t, order.StatusConfirmed, e.status(t, id))
	})

	t.Run("单据操作的订单不存在", func(t *testing.T) {
		_, err := svc.Execute(ctx, 777, ActionGenerateShippingLabel)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestCreateOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1")
	off := testkit.SeedProduct(t, e.store, "SKU-OFF", testkit.Inactive())

	req := CreateOrderRequest{
		ChannelID:       e.channelID,
		ExternalOrderID: "SHOPEE-1",
		DiscountCode:    "SUMMER",
		Items:           []CreateOrderItem{{ProductID: p.ID, Quantity: 2}},
	}

	resp, err := e.create.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "CREATED", resp.Status)
	assert.Equal(t, p.BasePrice*2, resp.TotalAmount)
	assert.Equal(t, "SUMMER", resp.DiscountCode)

	tests := []struct {
		name   string
		mutate func(r *CreateOrderRequest)
		want   error
	}{
		{"渠道订单号重复", func(r *CreateOrderRequest) {}, order.ErrDuplicateExternalOrder},
		{"渠道不存在", func(r *CreateOrderRequest) { r.ChannelID = 99; r.ExternalOrderID = "X-1" }, channel.ErrChannelNotFound},
		{"商品未在售", func(r *CreateOrderRequest) {
			r.ExternalOrderID = "X-2"
			r.Items = []CreateOrderItem{{ProductID: off.ID, Quantity: 1}}
		}, product.ErrProductInactive},
		{"商品不存在", func(r *CreateOrderRequest) {
			r.ExternalOrderID = "X-3"
			r.Items = []CreateOrderItem{{ProductID: 404, Quantity: 1}}
		}, product.ErrProductNotFound},
		{"数量非法", func(r *CreateOrderRequest) {
			r.ExternalOrderID = "X-4"
			r.Items = []CreateOrderItem{{ProductID: p.ID, Quantity: 0}}
		}, order.ErrInvalidQuantity},
		{"明细为空", func(r *CreateOrderRequest) { r.ExternalOrderID = "X-5"; r.Items = nil }, order.ErrInvalidOrderItems},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := req
			tt.mutate(&r)
			_, err := e.create.Execute(ctx, r)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestPullOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("同一天重复拉取跳过已存在订单", func(t *testing.T) {
		e := newEnv(t)
		p := testkit.SeedProduct(t, e.store, "SKU-1")
		day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		e.pull.now = func() time.Time { return day }

		first, err := e.pull.Execute(ctx, e.channelID)
		require.NoError(t, err)
		assert.Equal(t, 2, first.Created)
		assert.Zero(t, first.Skipped)
		require.Len(t, first.OrderIDs, 2)

		o, err := e.store.Orders().FindByID(ctx, first.OrderIDs[0])
		require.NoError(t, err)
		assert.Equal(t, "PULL-shopee-2026-03-01-A", o.ExternalOrderID)
		assert.Equal(t, p.ID, o.Items[0].ProductID)
		assert.Equal(t, order.StatusCreated, o.Status)

		second, err := e.pull.Execute(ctx, e.channelID)
		require.NoError(t, err)
		assert.Zero(t, second.Created)
		assert.Equal(t, 2, second.Skipped)
		assert.Empty(t, second.OrderIDs)

		assert.Equal(t, []integration.Operation{integration.OpPullOrders, integration.OpPullOrders}, e.adapter.Operations())
	})

	t.Run("单号日期按UTC计算", func(t *testing.T) {
		e := newEnv(t)
		testkit.SeedProduct(t, e.store, "SKU-1")
		e.pull.now = func() time.Time { return time.Date(2026, 3, 2, 1, 30, 0, 0, time.FixedZone("CST", 8*3600)) }

		res, err := e.pull.Execute(ctx, e.channelID)
		require.NoError(t, err)
		require.Len(t, res.OrderIDs, 2)
		o, err := e.store.Orders().FindByID(ctx, res.OrderIDs[1])
		require.NoError(t, err)
		assert.Equal(t, "PULL-shopee-2026-03-01-B", o.ExternalOrderID)
	})

	t.Run("没有在售商品", func(t *testing.T) {
		e := newEnv(t)
		testkit.SeedProduct(t, e.store, "SKU-OFF", testkit.Inactive())
		_, err := e.pull.Execute(ctx, e.channelID)
		assert.ErrorIs(t, err, product.ErrNoActiveProduct)
	})

	t.Run("渠道停用或不存在", func(t *testing.T) {
		e := newEnv(t)
		off := testkit.SeedChannel(t, e.store, "lazada", testkit.Disabled())
		_, err := e.pull.Execute(ctx, off.ID)
		assert.ErrorIs(t, err, channel.ErrChannelDisabled)
		_, err = e.pull.Execute(ctx, 404)
		assert.ErrorIs(t, err, channel.ErrChannelNotFound)
	})

	t.Run("全部渠道拉取时单个渠道失败不影响其他渠道", func(t *testing.T) {
		e := newEnv(t)
		testkit.SeedProduct(t, e.store, "SKU-1")
		testkit.SeedChannel(t, e.store, "amazon")
		testkit.SeedChannel(t, e.store, "zalora", testkit.Disabled())

		results, err := e.pull.ExecuteAll(ctx)
		require.NoError(t, err)
		require.Len(t, results, 2, "只拉取启用渠道")
		for _, r := range results {
			assert.Empty(t, r.Error)
			assert.Equal(t, 2, r.Created)
		}

		e.adapter.SetFailing(integration.OpPullOrders, true)
		results, err = e.pull.ExecuteAll(ctx)
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Contains(t, r.Error, "INTEGRATION_FAILURE")
		}
	})
}

func TestListOrders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testkit.SeedProduct(t, e.store, "SKU-1")

	var ids []uint
	for i := 0; i < 30; i++ {
		ids = append(ids, e.newOrder(t, p.ID, 1))
	}
	_, err := e.transitions.Confirm(ctx, ids[0])
	require.NoError(t, err)

	page, err := e.query.List(ctx, ListOrdersRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(30), page.Total)
	assert.Len(t, page.Orders, 25)
	assert.Equal(t, ids[29], page.Orders[0].ID, "最新的在前")

	page, err = e.query.List(ctx, ListOrdersRequest{Page: 2, PageSize: 25})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 5)

	page, err = e.query.List(ctx, ListOrdersRequest{Status: "CONFIRMED"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = e.query.List(ctx, ListOrdersRequest{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)

	_, err = e.query.List(ctx, ListOrdersRequest{Status: "LOST"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}
