package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// DefaultEventTTL 渠道重复投递通常发生在几分钟到几小时内
const DefaultEventTTL = 24 * time.Hour

// EventGuard 渠道事件重复投递保护
// Key设计：channel:event:{channel_id}:{type}:{external_order_id}:{occurred_at}
type EventGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventGuard 创建去重器，client为nil时所有事件都视为首次投递
func NewEventGuard(client *redis.Client, ttl time.Duration) *EventGuard {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventGuard{client: client, ttl: ttl}
}

func eventKey(channelID uint, eventType, externalOrderID string, occurredAt time.Time) string {
	return fmt.Sprintf("channel:event:%d:%s:%s:%d", channelID, eventType, externalOrderID, occurredAt.UnixNano())
}

// FirstDelivery 首次见到该事件返回true
// 没有发生时间的事件无法区分重投和新事件，一律放行
func (g *EventGuard) FirstDelivery(ctx context.Context, channelID uint, eventType, externalOrderID string, occurredAt *time.Time) (bool, error) {
	if g == nil || g.client == nil || occurredAt == nil || occurredAt.IsZero() {
		return true, nil
	}

	ok, err := g.client.SetNX(ctx, eventKey(channelID, eventType, externalOrderID, *occurredAt), "1", g.ttl).Result()
	if err != nil {
		return false, apperrors.ErrRedisError.WithErr(err)
	}
	return ok, nil
}

// Forget 处理失败时删除标记，允许渠道重投
func (g *EventGuard) Forget(ctx context.Context, channelID uint, eventType, externalOrderID string, occurredAt *time.Time) error {
	if g == nil || g.client == nil || occurredAt == nil || occurredAt.IsZero() {
		return nil
	}
	if err := g.client.Del(ctx, eventKey(channelID, eventType, externalOrderID, *occurredAt)).Err(); err != nil {
		return apperrors.ErrRedisError.WithErr(err)
	}
	return nil
}
