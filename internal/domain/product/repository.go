package product

import (
	"context"
)

// Repository 商品仓储接口
type Repository interface {
	Create(ctx context.Context, product *Product) error

	FindByID(ctx context.Context, id uint) (*Product, error)

	// FindByIDs 批量查询，结果按id索引
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*Product, error)

	// LockByID 在当前事务内加排他锁读取(SELECT ... FOR UPDATE)
	// 并发确认同一商品时在这里排队，消除读-判断-写之间的竞态
	LockByID(ctx context.Context, id uint) (*Product, error)

	// ApplyStockDelta 原子地调整库存计数
	// 条件更新保证 reserved_stock 与 total_stock 都不会小于0，不满足时返回对应的Underflow错误
	ApplyStockDelta(ctx context.Context, id uint, reservedDelta, totalDelta int) error

	// UpdateContent 更新上架内容字段
	UpdateContent(ctx context.Context, product *Product) error

	// FirstActive 最早创建的在售商品，拉单时使用
	FirstActive(ctx context.Context) (*Product, error)
}
