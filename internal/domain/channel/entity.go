package channel

import (
	"time"
)

// Channel 销售渠道
// APIKey 与 WebhookSecret 落库时是密文，由应用层用secrets.Box解密后使用
type Channel struct {
	ID            uint
	Name          string
	Enabled       bool
	Sandbox       bool
	BaseURL       string
	APIKey        string
	WebhookSecret string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsConfigured 渠道连接配置齐全（base url 与 api key）
func (c *Channel) IsConfigured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// EnsureEnabled 渠道被停用时任何上架/下架变更都不允许
func (c *Channel) EnsureEnabled() error {
	if !c.Enabled {
		return ErrChannelDisabled.WithDetail("channel=%s", c.Name)
	}
	return nil
}
