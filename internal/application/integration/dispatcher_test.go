package integration

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/omnichannel/internal/testkit"
	"github.com/xiebiao/omnichannel/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/metrics"
)

type fixture struct {
	store      *memory.Store
	adapter    *testkit.ScriptedAdapter
	metrics    *metrics.Metrics
	dispatcher *Dispatcher
	relay      *OutboxRelay
}

func newFixture(t *testing.T, cfg RelayConfig, failing ...integration.Operation) *fixture {
	t.Helper()
	store := memory.NewStore()
	adapter := testkit.NewScriptedAdapter(failing...)
	m := metrics.NewNop()
	breakers := circuitbreaker.NewGroup(circuitbreaker.Settings{FailureThreshold: 1000})
	d := NewDispatcher(adapter, store.IntegrationLogs(), breakers, m, zap.NewNop())
	return &fixture{
		store:      store,
		adapter:    adapter,
		metrics:    m,
		dispatcher: d,
		relay:      NewOutboxRelay(store.Outbox(), d, cfg, m, zap.NewNop()),
	}
}

// gatedAdapter 第一次调用停在gate上，直到测试放行
type gatedAdapter struct {
	next    integration.Adapter
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedAdapter(next integration.Adapter) *gatedAdapter {
	return &gatedAdapter{next: next, entered: make(chan struct{}), release: make(chan struct{})}
}

func (a *gatedAdapter) Call(ctx context.Context, req integration.Request) (json.RawMessage, error) {
	if a.calls.Add(1) == 1 {
		close(a.entered)
		<-a.release
	}
	return a.next.Call(ctx, req)
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("成功写SUCCESS日志", func(t *testing.T) {
		f := newFixture(t, RelayConfig{})
		res, err := f.dispatcher.Dispatch(ctx, 1, integration.ShippingLabelPayload{OrderID: 5, ExternalOrderID: "E-5"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"message":"Simulated call","operation":"GENERATE_SHIPPING_LABEL"}`, string(res.Response))

		logs, err := f.dispatcher.ListLogs(ctx, integration.ListParams{})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, integration.LogSuccess, logs[0].Status)
		assert.JSONEq(t, `{"orderId":5,"externalOrderId":"E-5"}`, string(logs[0].Payload))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DispatchTotal.WithLabelValues("GENERATE_SHIPPING_LABEL", "SUCCESS")))
	})

	t.Run("失败先写FAILED日志再返回INTEGRATION_FAILURE", func(t *testing.T) {
		f := newFixture(t, RelayConfig{}, integration.OpGenerateInvoice)
		_, err := f.dispatcher.Dispatch(ctx, 1, integration.InvoicePayload{OrderID: 5, TotalAmount: 100})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrIntegrationFailure)

		logs, err := f.dispatcher.ListLogs(ctx, integration.ListParams{Status: integration.LogFailed})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Error, testkit.ErrScripted.Error())
		assert.JSONEq(t, `{"error":"`+testkit.ErrScripted.Error()+`"}`, string(logs[0].Response))
	})
}

func TestDispatcher_Retry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RelayConfig{}, integration.OpListProduct)

	_, err := f.dispatcher.Dispatch(ctx, 3, integration.ListProductPayload{ProductID: 1, SKU: "SKU-1", MarketplaceSKU: "1-3", Title: "书", Price: 500})
	require.Error(t, err)
	logs, _ := f.dispatcher.ListLogs(ctx, integration.ListParams{})
	orig := logs[0]

	t.Run("每次重试都按原始字节重放并新增日志", func(t *testing.T) {
		f.adapter.SetFailing(integration.OpListProduct, false)
		first, err := f.dispatcher.Retry(ctx, orig.ID)
		require.NoError(t, err)
		second, err := f.dispatcher.Retry(ctx, orig.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first.LogID, second.LogID)

		for _, id := range []uint{first.LogID, second.LogID} {
			retried, err := f.store.IntegrationLogs().FindByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []byte(orig.Payload), []byte(retried.Payload))
			require.NotNil(t, retried.RetryOf)
			assert.Equal(t, orig.ID, *retried.RetryOf)
		}

		calls := f.adapter.Calls()
		require.Len(t, calls, 3)
		assert.Equal(t, []byte(calls[0].Payload), []byte(calls[1].Payload))
		assert.Equal(t, []byte(calls[0].Payload), []byte(calls[2].Payload))

		all, _ := f.dispatcher.ListLogs(ctx, integration.ListParams{})
		assert.Len(t, all, 3)
	})

	t.Run("日志不存在", func(t *testing.T) {
		_, err := f.dispatcher.Retry(ctx, 999)
		assert.ErrorIs(t, err, integration.ErrLogNotFound)
	})
}

func TestDispatcher_ListLogsFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RelayConfig{}, integration.OpCancelOrder)

	_, _ = f.dispatcher.Dispatch(ctx, 1, integration.NewOrderPayload(integration.OpConfirmOrder, 1, "A", "CONFIRMED"))
	_, _ = f.dispatcher.Dispatch(ctx, 2, integration.NewOrderPayload(integration.OpCancelOrder, 2, "B", "CANCELLED"))
	_, _ = f.dispatcher.Dispatch(ctx, 2, integration.NewOrderPayload(integration.OpConfirmOrder, 3, "C", "CONFIRMED"))

	tests := []struct {
		name   string
		params integration.ListParams
		want   int
	}{
		{"全部", integration.ListParams{}, 3},
		{"按渠道", integration.ListParams{ChannelID: 2}, 2},
		{"按操作", integration.ListParams{Operation: integration.OpConfirmOrder}, 2},
		{"按状态", integration.ListParams{Status: integration.LogFailed}, 1},
		{"限制条数", integration.ListParams{Limit: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, err := f.dispatcher.ListLogs(ctx, tt.params)
			require.NoError(t, err)
			assert.Len(t, logs, tt.want)
		})
	}

	logs, _ := f.dispatcher.ListLogs(ctx, integration.ListParams{})
	assert.Greater(t, logs[0].ID, logs[1].ID, "最新的在前")
}

func TestOutboxRelay(t *testing.T) {
	ctx := context.Background()

	enqueue := func(t *testing.T, f *fixture) string {
		var id string
		err := f.store.Transaction(ctx, func(ctx context.Context) error {
			var err error
			id, err = f.relay.Enqueue(ctx, 1, integration.NewOrderPayload(integration.OpShipOrder, 7, "E-7", "SHIPPED"))
			return err
		})
		require.NoError(t, err)
		return id
	}

	t.Run("inline立即发送", func(t *testing.T) {
		f := newFixture(t, RelayConfig{Inline: true})
		id := enqueue(t, f)
		f.relay.Flush(ctx, id)

		intent, err := f.store.Outbox().FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, integration.IntentDispatched, intent.Status)
		require.NotNil(t, intent.LogID)
		assert.Equal(t, []integration.Operation{integration.OpShipOrder}, f.adapter.Operations())
	})

	t.Run("inline关闭时Flush不发送", func(t *testing.T) {
		f := newFixture(t, RelayConfig{Inline: false})
		id := enqueue(t, f)
		f.relay.Flush(ctx, id)

		intent, _ := f.store.Outbox().FindByID(ctx, id)
		assert.Equal(t, integration.IntentPending, intent.Status)
		assert.Empty(t, f.adapter.Calls())

		n, err := f.relay.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		intent, _ = f.store.Outbox().FindByID(ctx, id)
		assert.Equal(t, integration.IntentDispatched, intent.Status)
	})

	t.Run("失败退避，重试耗尽进入DEAD后可以重新入队", func(t *testing.T) {
		f := newFixture(t, RelayConfig{Inline: true, MaxAttempts: 2, BaseBackoff: time.Minute}, integration.OpShipOrder)
		now := time.Now().Add(time.Second)
		f.relay.now = func() time.Time { return now }

		id := enqueue(t, f)
		f.relay.Flush(ctx, id)

		intent, _ := f.store.Outbox().FindByID(ctx, id)
		assert.Equal(t, integration.IntentPending, intent.Status)
		assert.Equal(t, 1, intent.Attempts)
		assert.Equal(t, now.Add(time.Minute), intent.NextAttemptAt)
		assert.NotEmpty(t, intent.LastError)

		n, err := f.relay.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "未到重试时间")

		now = now.Add(2 * time.Minute)
		_, err = f.relay.RunOnce(ctx)
		require.NoError(t, err)
		intent, _ = f.store.Outbox().FindByID(ctx, id)
		assert.Equal(t, integration.IntentDead, intent.Status)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OutboxDeadTotal))

		dead, err := f.relay.ListIntents(ctx, integration.IntentDead, 0)
		require.NoError(t, err)
		assert.Len(t, dead, 1)

		f.adapter.SetFailing(integration.OpShipOrder, false)
		intent, err = f.relay.Requeue(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, integration.IntentDispatched, intent.Status)
	})

	t.Run("只有DEAD可以重新入队", func(t *testing.T) {
		f := newFixture(t, RelayConfig{})
		id := enqueue(t, f)
		_, err := f.relay.Requeue(ctx, id)
		assert.ErrorIs(t, err, integration.ErrIntentNotDead)

		_, err = f.relay.Requeue(ctx, "missing")
		assert.ErrorIs(t, err, integration.ErrIntentNotFound)
	})

	t.Run("事务回滚时发件箱记录一起回滚", func(t *testing.T) {
		f := newFixture(t, RelayConfig{Inline: true})
		var id string
		err := f.store.Transaction(ctx, func(ctx context.Context) error {
			id, _ = f.relay.Enqueue(ctx, 1, integration.NewOrderPayload(integration.OpShipOrder, 7, "E-7", "SHIPPED"))
			return apperrors.ErrInternal
		})
		require.Error(t, err)
		_, err = f.store.Outbox().FindByID(ctx, id)
		assert.ErrorIs(t, err, integration.ErrIntentNotFound)
	})

	t.Run("inline发送途中worker不会重复发送", func(t *testing.T) {
		store := memory.NewStore()
		scripted := testkit.NewScriptedAdapter()
		gate := newGatedAdapter(scripted)
		m := metrics.NewNop()
		d := NewDispatcher(gate, store.IntegrationLogs(), circuitbreaker.NewGroup(circuitbreaker.Settings{FailureThreshold: 1000}), m, zap.NewNop())
		api := NewOutboxRelay(store.Outbox(), d, RelayConfig{Inline: true}, m, zap.NewNop())
		worker := NewOutboxRelay(store.Outbox(), d, RelayConfig{}, m, zap.NewNop())
		id := enqueue(t, &fixture{store: store, relay: api})

		done := make(chan struct{})
		go func() {
			defer close(done)
			api.Flush(ctx, id)
		}()
		<-gate.entered

		n, err := worker.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "记录已被API进程占用")

		close(gate.release)
		<-done

		assert.Len(t, scripted.Calls(), 1)
		logs, err := store.IntegrationLogs().List(ctx, integration.ListParams{})
		require.NoError(t, err)
		assert.Len(t, logs, 1)
		intent, _ := store.Outbox().FindByID(ctx, id)
		assert.Equal(t, integration.IntentDispatched, intent.Status)
	})

	t.Run("worker先占用时Flush跳过", func(t *testing.T) {
		f := newFixture(t, RelayConfig{Inline: true})
		id := enqueue(t, f)

		pending, err := f.store.Outbox().PullPending(ctx, time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		ok, err := f.store.Outbox().Claim(ctx, id, time.Now(), time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = f.store.Outbox().Claim(ctx, id, time.Now(), time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, ok, "同一条记录只能占用一次")

		f.relay.Flush(ctx, id)
		assert.Empty(t, f.adapter.Calls())
		n, err := f.relay.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "租期内不会再次到期")
	})
}
