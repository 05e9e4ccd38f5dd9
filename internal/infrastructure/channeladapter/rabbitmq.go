package channeladapter

import (
	"context"
	"encoding/json"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/tracing"
)

// Publisher mq.Publisher的抽象，测试中替换
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, message interface{}) error
	Exchange() string
}

// RabbitMQ 把渠道请求发布到topic exchange，由各渠道连接器消费
type RabbitMQ struct {
	pub     Publisher
	metrics *metrics.Metrics
}

// NewRabbitMQ 创建RabbitMQ适配器
func NewRabbitMQ(pub Publisher, m *metrics.Metrics) *RabbitMQ {
	return &RabbitMQ{pub: pub, metrics: m}
}

type publishResponse struct {
	Published   bool   `json:"published"`
	Destination string `json:"destination"`
	Key         string `json:"key"`
}

func (a *RabbitMQ) Call(ctx context.Context, req integration.Request) (json.RawMessage, error) {
	key := RoutingKey(req.ChannelID, req.Operation)
	env := Envelope{
		ChannelID: req.ChannelID,
		Operation: req.Operation,
		Payload:   req.Payload,
		TraceID:   tracing.TraceID(ctx),
	}
	if err := a.pub.PublishJSON(ctx, key, env); err != nil {
		return nil, err
	}
	a.metrics.MessagesPublishedTotal.WithLabelValues("rabbitmq", a.pub.Exchange()).Inc()
	return json.Marshal(publishResponse{Published: true, Destination: a.pub.Exchange(), Key: key})
}
