// Package shared 跨聚合共用的领域端口
package shared

import "context"

// TxManager 事务管理端口
// fn内通过ctx拿到事务，仓储实现从ctx中取事务句柄；fn返回错误时整体回滚
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
