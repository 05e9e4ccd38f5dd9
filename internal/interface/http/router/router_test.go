package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/bootstrap"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/omnichannel/internal/interface/http/handler"
	"github.com/xiebiao/omnichannel/internal/interface/http/middleware"
	"github.com/xiebiao/omnichannel/internal/interface/http/router"
	"github.com/xiebiao/omnichannel/internal/testkit"
	"github.com/xiebiao/omnichannel/pkg/circuitbreaker"
	"github.com/xiebiao/omnichannel/pkg/jwt"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/response"
	"github.com/xiebiao/omnichannel/pkg/secrets"
)

type server struct {
	engine  *gin.Engine
	store   *memory.Store
	adapter *testkit.ScriptedAdapter
	token   string
}

func newServer(t *testing.T, checks map[string]handler.HealthCheck) *server {
	t.Helper()
	store := memory.NewStore()
	adapter := testkit.NewScriptedAdapter()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	log := zap.NewNop()
	box, err := secrets.New("")
	require.NoError(t, err)

	services := bootstrap.NewServices(bootstrap.MemoryRepositories(store), bootstrap.Deps{
		Adapter:  adapter,
		Breakers: circuitbreaker.NewGroup(circuitbreaker.Settings{FailureThreshold: 1000}),
		Relay:    appintegration.RelayConfig{Inline: true},
		Box:      box,
		Metrics:  m,
		Logger:   log,
	})

	mgr := jwt.NewManager("router-test", "omnichannel")
	token, err := mgr.Issue(7, "ops", time.Hour)
	require.NoError(t, err)

	engine := router.New(router.Options{Mode: gin.TestMode},
		bootstrap.NewHandlers(services, checks), middleware.NewAuthMiddleware(mgr), log, m, reg)
	return &server{engine: engine, store: store, adapter: adapter, token: token}
}

func (s *server) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp response.Response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (s *server) authed(t *testing.T, method, path string, body interface{}) response.Response {
	t.Helper()
	w, resp := s.do(t, method, path, body, map[string]string{"Authorization": "Bearer " + s.token})
	require.Equal(t, http.StatusOK, w.Code)
	return resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data应该是对象: %#v", resp.Data)
	return m
}

func TestOpsEndpoints(t *testing.T) {
	s := newServer(t, map[string]handler.HealthCheck{
		"mysql": func(context.Context) error { return nil },
	})

	t.Run("健康检查", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"healthy"`)
	})

	t.Run("指标", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, "/metrics", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "http_requests_total")
	})

	t.Run("依赖失败时503", func(t *testing.T) {
		bad := newServer(t, map[string]handler.HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		})
		w, _ := bad.do(t, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestAPIRequiresOperatorToken(t *testing.T) {
	s := newServer(t, nil)
	w, resp := s.do(t, http.MethodGet, "/api/v1/orders", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UNAUTHORIZED", resp.Reason)
}

func TestOrderLifecycle(t *testing.T) {
	s := newServer(t, nil)
	ch := testkit.SeedChannel(t, s.store, "shopee")
	p := testkit.SeedProduct(t, s.store, "SKU-HTTP", testkit.WithStock(10, 0))

	resp := s.authed(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"channelId":       ch.ID,
		"externalOrderId": "SHP-1",
		"items":           []map[string]interface{}{{"productId": p.ID, "quantity": 3}},
	})
	require.Equal(t, 0, resp.Code, resp.Message)
	id := uint(dataMap(t, resp)["id"].(float64))

	t.Run("重复渠道订单号", func(t *testing.T) {
		resp := s.authed(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
			"channelId":       ch.ID,
			"externalOrderId": "SHP-1",
			"items":           []map[string]interface{}{{"productId": p.ID, "quantity": 1}},
		})
		assert.Equal(t, "DUPLICATE_EXTERNAL_ORDER", resp.Reason)
	})

	t.Run("确认订单", func(t *testing.T) {
		resp := s.authed(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/actions", id), map[string]string{"action": "CONFIRM"})
		require.Equal(t, 0, resp.Code, resp.Message)
		o := dataMap(t, resp)["order"].(map[string]interface{})
		assert.Equal(t, string(order.StatusConfirmed), o["status"])
		assert.Equal(t, 3, testkit.Product(t, s.store, p.ID).ReservedStock)
	})

	t.Run("未知动作被拒绝", func(t *testing.T) {
		resp := s.authed(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/actions", id), map[string]string{"action": "refund"})
		assert.Equal(t, "UNSUPPORTED_ACTION:refund", resp.Reason+":"+resp.Detail)
	})

	t.Run("状态冲突", func(t *testing.T) {
		resp := s.authed(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/actions", id), map[string]string{"action": "ship"})
		assert.Equal(t, "INVALID_ORDER_STATE", resp.Reason)
	})

	t.Run("生成面单", func(t *testing.T) {
		resp := s.authed(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/actions", id), map[string]string{"action": "generate_shipping_label"})
		require.Equal(t, 0, resp.Code, resp.Message)
		assert.NotNil(t, dataMap(t, resp)["document"])
	})

	t.Run("订单流水", func(t *testing.T) {
		resp := s.authed(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d/movements", id), nil)
		list := resp.Data.([]interface{})
		require.Len(t, list, 1)
		assert.Equal(t, "CONFIRM", list[0].(map[string]interface{})["type"])
	})

	t.Run("订单列表", func(t *testing.T) {
		resp := s.authed(t, http.MethodGet, "/api/v1/orders?status=CONFIRMED", nil)
		page := dataMap(t, resp)
		assert.Equal(t, float64(1), page["total"])
	})

	t.Run("非法状态过滤", func(t *testing.T) {
		resp := s.authed(t, http.MethodGet, "/api/v1/orders?status=LOST", nil)
		assert.Equal(t, "INVALID_PARAMS", resp.Reason)
	})

	t.Run("集成日志", func(t *testing.T) {
		resp := s.authed(t, http.MethodGet, "/api/v1/integrations?operation=CONFIRM_ORDER", nil)
		logs := resp.Data.([]interface{})
		require.Len(t, logs, 1)
		assert.Equal(t, "SUCCESS", logs[0].(map[string]interface{})["status"])
	})
}

func TestBulkOrderAction(t *testing.T) {
	s := newServer(t, nil)
	ch := testkit.SeedChannel(t, s.store, "shopee")
	p := testkit.SeedProduct(t, s.store, "SKU-BULK", testkit.WithStock(5, 0))

	var ids []uint
	for i, qty := range []int{2, 9} {
		resp := s.authed(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
			"channelId":       ch.ID,
			"externalOrderId": fmt.Sprintf("BULK-%d", i),
			"items":           []map[string]interface{}{{"productId": p.ID, "quantity": qty}},
		})
		require.Equal(t, 0, resp.Code, resp.Message)
		ids = append(ids, uint(dataMap(t, resp)["id"].(float64)))
	}

	resp := s.authed(t, http.MethodPost, "/api/v1/orders/bulk", map[string]interface{}{
		"action":   "confirm",
		"orderIds": ids,
	})
	require.Equal(t, 0, resp.Code, resp.Message)
	data := dataMap(t, resp)
	assert.Equal(t, []interface{}{float64(ids[0])}, data["succeeded"])
	failed := data["failed"].([]interface{})
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].(map[string]interface{})["reason"], "OUT_OF_STOCK")

	t.Run("批量不支持deliver", func(t *testing.T) {
		resp := s.authed(t, http.MethodPost, "/api/v1/orders/bulk", map[string]interface{}{
			"action":   "deliver",
			"orderIds": ids,
		})
		assert.Equal(t, "INVALID_PAYLOAD", resp.Reason)
	})
}

func TestWebhook(t *testing.T) {
	s := newServer(t, nil)
	ch := testkit.SeedChannel(t, s.store, "lazada", testkit.WithWebhookSecret("whsec-1"))
	p := testkit.SeedProduct(t, s.store, "SKU-WH")

	resp := s.authed(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"channelId":       ch.ID,
		"externalOrderId": "LZ-9",
		"items":           []map[string]interface{}{{"productId": p.ID, "quantity": 1}},
	})
	require.Equal(t, 0, resp.Code, resp.Message)
	path := fmt.Sprintf("/api/v1/channels/%d/events", ch.ID)
	event := map[string]string{
		"type":            "ORDER_CANCELLED_BY_CUSTOMER",
		"externalOrderId": "LZ-9",
		"occurredAt":      "2026-03-01T08:00:00Z",
	}

	t.Run("密钥错误返回401", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, path, event, map[string]string{handler.WebhookSecretHeader: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_WEBHOOK_SECRET", resp.Reason)
	})

	t.Run("时间格式错误", func(t *testing.T) {
		bad := map[string]string{"type": "ORDER_CANCELLED_BY_CUSTOMER", "externalOrderId": "LZ-9", "occurredAt": "yesterday"}
		_, resp := s.do(t, http.MethodPost, path, bad, map[string]string{handler.WebhookSecretHeader: "whsec-1"})
		assert.Equal(t, "INVALID_PAYLOAD", resp.Reason)
	})

	t.Run("客户取消", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, path, event, map[string]string{handler.WebhookSecretHeader: "whsec-1"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 0, resp.Code, resp.Message)
		out := dataMap(t, resp)
		assert.Equal(t, "CANCELLED", out["status"])
		assert.Equal(t, false, out["awaitingWarehouse"])
	})

	t.Run("同一路径下拉单仍需要运营Token", func(t *testing.T) {
		_, resp := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/channels/%d/pull", ch.ID), nil, nil)
		assert.Equal(t, "UNAUTHORIZED", resp.Reason)
	})
}

func TestListingEndpoints(t *testing.T) {
	s := newServer(t, nil)
	ch := testkit.SeedChannel(t, s.store, "tokopedia")
	p := testkit.SeedProduct(t, s.store, "SKU-LST")

	resp := s.authed(t, http.MethodPost, "/api/v1/listings", map[string]interface{}{
		"productId": p.ID,
		"channelId": ch.ID,
	})
	require.Equal(t, 0, resp.Code, resp.Message)
	listingID := uint(dataMap(t, resp)["id"].(float64))

	resp = s.authed(t, http.MethodPatch, fmt.Sprintf("/api/v1/listings/%d/status", listingID), map[string]string{
		"status": "DELISTED",
		"reason": "季末清仓",
	})
	require.Equal(t, 0, resp.Code, resp.Message)

	resp = s.authed(t, http.MethodGet, fmt.Sprintf("/api/v1/listings/%d/history", listingID), nil)
	history := resp.Data.([]interface{})
	require.Len(t, history, 2)

	t.Run("重复刊登", func(t *testing.T) {
		resp := s.authed(t, http.MethodPost, "/api/v1/listings", map[string]interface{}{
			"productId": p.ID,
			"channelId": ch.ID,
		})
		assert.Equal(t, "ALREADY_LISTED", resp.Reason)
	})
}

func TestStockAdjustment(t *testing.T) {
	s := newServer(t, nil)
	p := testkit.SeedProduct(t, s.store, "SKU-ADJ", testkit.WithStock(10, 4))

	resp := s.authed(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%d/stock-adjustments", p.ID), map[string]interface{}{
		"delta":     5,
		"reference": "盘点",
	})
	require.Equal(t, 0, resp.Code, resp.Message)
	assert.Equal(t, float64(15), dataMap(t, resp)["totalStock"])

	resp = s.authed(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/movements", p.ID), nil)
	page := dataMap(t, resp)
	assert.Equal(t, float64(1), page["total"])

	t.Run("非法ID", func(t *testing.T) {
		resp := s.authed(t, http.MethodGet, "/api/v1/products/abc/movements", nil)
		assert.Equal(t, "INVALID_PARAMS", resp.Reason)
	})
}
