package integration

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IntentStatus 发件箱状态
type IntentStatus string

const (
	IntentPending    IntentStatus = "PENDING"
	IntentDispatched IntentStatus = "DISPATCHED"
	IntentDead       IntentStatus = "DEAD"
)

// OutboxIntent 待发送的渠道通知
// 与业务状态变更在同一事务中写入，提交后由relay发送；发送结果落在集成日志里
type OutboxIntent struct {
	ID            string
	ChannelID     uint
	Operation     Operation
	Payload       json.RawMessage
	Status        IntentStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	LogID         *uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewIntent 由强类型载荷构造发件箱记录
func NewIntent(channelID uint, p Payload) (*OutboxIntent, error) {
	op, raw, err := Encode(p)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &OutboxIntent{
		ID:            uuid.NewString(),
		ChannelID:     channelID,
		Operation:     op,
		Payload:       raw,
		Status:        IntentPending,
		NextAttemptAt: now.Truncate(time.Millisecond), // 与库中毫秒精度一致，避免提交后立即发送时还未到期
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Backoff 第attempts次失败后的等待时间，指数增长，封顶1小时
func Backoff(base time.Duration, attempts int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= time.Hour {
			return time.Hour
		}
	}
	return d
}
