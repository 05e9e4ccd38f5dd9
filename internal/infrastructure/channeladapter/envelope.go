package channeladapter

import (
	"encoding/json"
	"strconv"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
)

// Envelope 发往消息队列的渠道请求
// Payload原样透传，下游连接器按operation解码
type Envelope struct {
	ChannelID uint                  `json:"channelId"`
	Operation integration.Operation `json:"operation"`
	Payload   json.RawMessage       `json:"payload"`
	TraceID   string                `json:"traceId,omitempty"`
}

// RoutingKey channel.<id>.<operation>
func RoutingKey(channelID uint, op integration.Operation) string {
	return "channel." + strconv.FormatUint(uint64(channelID), 10) + "." + string(op)
}
