// Package channeladapter 渠道适配器实现
//
// 应用层只依赖integration.Adapter端口；这里提供模拟器和两种消息队列发布方式，
// 由配置integration.adapter选择。
package channeladapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
)

// SimulatedResponse 模拟器的固定应答
type SimulatedResponse struct {
	Message   string                `json:"message"`
	Operation integration.Operation `json:"operation"`
}

// Simulated 本地模拟渠道，fail中的操作总是失败
type Simulated struct {
	fail map[integration.Operation]bool
}

// NewSimulated 创建模拟适配器
func NewSimulated(failOperations ...string) *Simulated {
	fail := make(map[integration.Operation]bool, len(failOperations))
	for _, op := range failOperations {
		fail[integration.Operation(op)] = true
	}
	return &Simulated{fail: fail}
}

func (s *Simulated) Call(ctx context.Context, req integration.Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.fail[req.Operation] {
		return nil, fmt.Errorf("simulated failure for %s", req.Operation)
	}
	return json.Marshal(SimulatedResponse{Message: "Simulated call", Operation: req.Operation})
}
