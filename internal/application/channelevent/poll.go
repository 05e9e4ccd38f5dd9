package channelevent

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// PollResult 单个渠道的轮询结果
type PollResult struct {
	ChannelID uint   `json:"channelId"`
	Channel   string `json:"channel"`
	Pulled    int    `json:"pulled"`
	Error     string `json:"error,omitempty"`
}

// Poller 向全部启用渠道拉取订单更新
// 目前渠道调用只留审计记录，不产生事件
type Poller struct {
	channels   channel.Repository
	dispatcher *appintegration.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewPoller 创建轮询器
func NewPoller(channels channel.Repository, dispatcher *appintegration.Dispatcher, logger *zap.Logger) *Poller {
	return &Poller{channels: channels, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// PollOrderUpdates 按渠道名称顺序依次调用，单个渠道失败不影响其他渠道
func (p *Poller) PollOrderUpdates(ctx context.Context) ([]PollResult, error) {
	channels, err := p.channels.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]PollResult, 0, len(channels))
	for _, ch := range channels {
		res := PollResult{ChannelID: ch.ID, Channel: ch.Name}
		resp, err := p.dispatcher.Dispatch(ctx, ch.ID, integration.PullPayload{
			Op:          integration.OpPullOrderUpdates,
			ChannelID:   ch.ID,
			TriggeredAt: p.now(),
		})
		if err != nil {
			p.logger.Warn("poll order updates failed", zap.Uint("channel_id", ch.ID), zap.Error(err))
			res.Error = apperrors.ReasonOf(err)
		} else {
			res.Pulled = countUpdates(resp.Response)
		}
		results = append(results, res)
	}
	return results, nil
}

// countUpdates 渠道响应中 updates 数组的长度，模拟渠道不返回该字段时为0
func countUpdates(resp json.RawMessage) int {
	var body struct {
		Updates []json.RawMessage `json:"updates"`
	}
	if len(resp) == 0 || json.Unmarshal(resp, &body) != nil {
		return 0
	}
	return len(body.Updates)
}
