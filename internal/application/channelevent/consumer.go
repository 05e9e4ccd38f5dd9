package channelevent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/mq"
)

// Inbound 队列里的渠道事件，路由键 channel.<id>.event
// Secret 是渠道的Webhook密钥，连接器原样转发
type Inbound struct {
	ChannelID uint   `json:"channelId"`
	Secret    string `json:"secret"`
	Event     Event  `json:"event"`
}

// Consumer 消费渠道连接器转发的事件
type Consumer struct {
	intake  *Intake
	auth    *WebhookAuthenticator
	metrics *metrics.Metrics
	queue   string
}

// NewConsumer 创建消费者
func NewConsumer(intake *Intake, auth *WebhookAuthenticator, m *metrics.Metrics, queue string) *Consumer {
	return &Consumer{intake: intake, auth: auth, metrics: m, queue: queue}
}

// Handle 实现mq.Handler
// 密钥不符、格式错误、订单不存在、不支持的事件直接丢弃；其他错误重新入队
func (c *Consumer) Handle(ctx context.Context, routingKey string, body []byte) (err error) {
	defer func() {
		c.metrics.MessagesConsumedTotal.WithLabelValues(c.queue, metrics.Result(err)).Inc()
	}()

	var in Inbound
	if err := json.Unmarshal(body, &in); err != nil {
		return fmt.Errorf("%w: %v", mq.ErrDrop, err)
	}
	if in.ChannelID == 0 {
		in.ChannelID = channelFromRoutingKey(routingKey)
	}
	if in.ChannelID == 0 {
		return fmt.Errorf("%w: channel id missing (%s)", mq.ErrDrop, routingKey)
	}

	if _, err := c.auth.Verify(ctx, in.ChannelID, in.Secret); err != nil {
		if errors.Is(err, apperrors.ErrInvalidSecret) || errors.Is(err, channel.ErrChannelNotFound) {
			return fmt.Errorf("%w: %v", mq.ErrDrop, err)
		}
		return err
	}

	if _, err := c.intake.Receive(ctx, in.ChannelID, in.Event); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) || errors.Is(err, ErrUnsupportedEvent) || errors.Is(err, ErrInvalidEvent) {
			return fmt.Errorf("%w: %v", mq.ErrDrop, err)
		}
		return err
	}
	return nil
}

func channelFromRoutingKey(key string) uint {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
