// Package testkit 应用层测试共用的替身和数据准备
package testkit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/memory"
)

// ErrScripted 脚本化适配器返回的失败
var ErrScripted = errors.New("scripted channel failure")

// Call 适配器收到的一次请求
type Call struct {
	ChannelID uint
	Operation integration.Operation
	Payload   json.RawMessage
}

// ScriptedAdapter 记录全部调用，按操作返回失败
type ScriptedAdapter struct {
	mu    sync.Mutex
	fail  map[integration.Operation]bool
	calls []Call
}

// NewScriptedAdapter 创建适配器，failing中的操作总是失败
func NewScriptedAdapter(failing ...integration.Operation) *ScriptedAdapter {
	a := &ScriptedAdapter{fail: map[integration.Operation]bool{}}
	for _, op := range failing {
		a.fail[op] = true
	}
	return a
}

// SetFailing 切换某个操作的失败开关
func (a *ScriptedAdapter) SetFailing(op integration.Operation, failing bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail[op] = failing
}

func (a *ScriptedAdapter) Call(_ context.Context, req integration.Request) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{
		ChannelID: req.ChannelID,
		Operation: req.Operation,
		Payload:   append(json.RawMessage(nil), req.Payload...),
	})
	if a.fail[req.Operation] {
		return nil, ErrScripted
	}
	return json.RawMessage(`{"message":"Simulated call","operation":"` + string(req.Operation) + `"}`), nil
}

// Calls 全部调用的副本
func (a *ScriptedAdapter) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

// Operations 按调用顺序列出操作
func (a *ScriptedAdapter) Operations() []integration.Operation {
	a.mu.Lock()
	defer a.mu.Unlock()
	ops := make([]integration.Operation, 0, len(a.calls))
	for _, c := range a.calls {
		ops = append(ops, c.Operation)
	}
	return ops
}

// ProductOption 调整待创建的商品
type ProductOption func(p *product.Product)

// WithStock 设置实物与预留库存
func WithStock(total, reserved int) ProductOption {
	return func(p *product.Product) {
		p.TotalStock = total
		p.ReservedStock = reserved
	}
}

// WithPolicy 设置超卖策略
func WithPolicy(policy product.OversellPolicy, limit int) ProductOption {
	return func(p *product.Product) {
		p.OversellPolicy = policy
		p.OversellLimit = limit
	}
}

// WithoutContent 清空上架内容
func WithoutContent() ProductOption {
	return func(p *product.Product) {
		p.Description = ""
		p.MetaTitle = ""
		p.MetaDescription = ""
		p.Images = nil
	}
}

// Inactive 商品下架
func Inactive() ProductOption {
	return func(p *product.Product) { p.Status = product.StatusInactive }
}

// SeedProduct 创建一个内容完整、REJECT策略的在售商品
func SeedProduct(t testing.TB, s *memory.Store, sku string, opts ...ProductOption) *product.Product {
	t.Helper()
	p := &product.Product{
		SKU:             sku,
		Name:            "商品 " + sku,
		BasePrice:       1999,
		TotalStock:      100,
		Status:          product.StatusActive,
		OversellPolicy:  product.OversellReject,
		Description:     "描述",
		MetaTitle:       "标题",
		MetaDescription: "摘要",
		Images:          []string{"https://img.example.com/" + sku + ".jpg"},
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := s.Products().Create(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// ChannelOption 调整待创建的渠道
type ChannelOption func(c *channel.Channel)

// Disabled 渠道停用
func Disabled() ChannelOption {
	return func(c *channel.Channel) { c.Enabled = false }
}

// Unconfigured 缺少连接配置
func Unconfigured() ChannelOption {
	return func(c *channel.Channel) { c.APIKey = "" }
}

// WithWebhookSecret 设置Webhook密钥（明文或密文）
func WithWebhookSecret(secret string) ChannelOption {
	return func(c *channel.Channel) { c.WebhookSecret = secret }
}

// SeedChannel 创建一个启用且配置齐全的渠道
func SeedChannel(t testing.TB, s *memory.Store, name string, opts ...ChannelOption) *channel.Channel {
	t.Helper()
	c := &channel.Channel{
		Name:          name,
		Enabled:       true,
		BaseURL:       "https://api." + name + ".example.com",
		APIKey:        "key-" + name,
		WebhookSecret: "whsec-" + name,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := s.Channels().Create(context.Background(), c); err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	return c
}

// Product 读取商品最新状态
func Product(t testing.TB, s *memory.Store, id uint) *product.Product {
	t.Helper()
	p, err := s.Products().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load product %d: %v", id, err)
	}
	return p
}
