package channelevent

import (
	"context"
	"crypto/subtle"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/secrets"
)

// WebhookAuthenticator 校验渠道推送携带的共享密钥
type WebhookAuthenticator struct {
	channels channel.Repository
	box      *secrets.Box
}

// NewWebhookAuthenticator 创建校验器
func NewWebhookAuthenticator(channels channel.Repository, box *secrets.Box) *WebhookAuthenticator {
	return &WebhookAuthenticator{channels: channels, box: box}
}

// Verify 渠道必须存在且配置了密钥，密钥按常量时间比较
func (a *WebhookAuthenticator) Verify(ctx context.Context, channelID uint, provided string) (*channel.Channel, error) {
	ch, err := a.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	stored, err := a.box.Open(ch.WebhookSecret)
	if err != nil {
		return nil, apperrors.ErrInternal.WithErr(err)
	}
	if stored == "" || provided == "" {
		return nil, apperrors.ErrInvalidSecret
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return nil, apperrors.ErrInvalidSecret
	}
	return ch, nil
}
