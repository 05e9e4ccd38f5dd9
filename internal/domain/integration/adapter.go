package integration

import (
	"context"
	"encoding/json"
)

// Request 发往渠道适配器的请求
type Request struct {
	ChannelID uint
	Operation Operation
	Payload   json.RawMessage
}

// Adapter 渠道适配器端口
// 实现可以是模拟器、消息队列发布者或真实的渠道API客户端
type Adapter interface {
	Call(ctx context.Context, req Request) (json.RawMessage, error)
}

// AdapterFunc 函数适配
type AdapterFunc func(ctx context.Context, req Request) (json.RawMessage, error)

func (f AdapterFunc) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}
