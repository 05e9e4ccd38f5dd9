package integration

import (
	"encoding/json"
	"time"
)

// LogStatus 集成调用结果
type LogStatus string

const (
	LogSuccess LogStatus = "SUCCESS"
	LogFailed  LogStatus = "FAILED"
)

// Log 集成调用日志，每次调用适配器都会写一行，只追加
// Payload 是发出去的原始字节，重试时原样重放
type Log struct {
	ID        uint
	ChannelID uint
	Operation Operation
	Payload   json.RawMessage
	Response  json.RawMessage
	Status    LogStatus
	Error     string
	RetryOf   *uint
	CreatedAt time.Time
}

// ListParams 日志查询条件，零值字段不参与过滤
type ListParams struct {
	Status    LogStatus
	ChannelID uint
	Operation Operation
	Limit     int
}

// DefaultListLimit 默认返回最近200条
const DefaultListLimit = 200
