package integration

import (
	"context"
	"time"
)

// LogRepository 集成日志仓储，只追加
type LogRepository interface {
	Create(ctx context.Context, log *Log) error
	FindByID(ctx context.Context, id uint) (*Log, error)
	// List 按条件查询，按时间倒序
	List(ctx context.Context, params ListParams) ([]*Log, error)
}

// OutboxRepository 发件箱仓储
type OutboxRepository interface {
	// Enqueue 写入待发送记录，必须在业务事务内调用
	Enqueue(ctx context.Context, intent *OutboxIntent) error
	FindByID(ctx context.Context, id string) (*OutboxIntent, error)
	// PullPending 到期的PENDING记录，按创建时间正序
	PullPending(ctx context.Context, now time.Time, limit int) ([]*OutboxIntent, error)
	// ListByStatus 运维查询
	ListByStatus(ctx context.Context, status IntentStatus, limit int) ([]*OutboxIntent, error)
	// Claim 发送前占用记录：仅当记录为PENDING且已到期(NextAttemptAt<=now)时，把NextAttemptAt推到leaseUntil
	// 返回false表示已被其他进程占用或状态已变，调用方应跳过
	Claim(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error)
	MarkDispatched(ctx context.Context, id string, logID uint) error
	// MarkFailed 记录失败；dead为true时置为DEAD，否则保持PENDING并推迟下次尝试时间
	MarkFailed(ctx context.Context, id string, logID *uint, errMsg string, next time.Time, dead bool) error
	// Requeue DEAD记录重新置为PENDING并清零尝试次数
	Requeue(ctx context.Context, id string) error
	// CountByStatus 各状态数量，用于监控
	CountByStatus(ctx context.Context) (map[IntentStatus]int64, error)
}
