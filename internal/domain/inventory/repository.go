package inventory

import (
	"context"
)

// MovementRepository 库存流水仓储，只提供追加与查询
type MovementRepository interface {
	Create(ctx context.Context, m *Movement) error

	// ListByProduct 按商品分页查询，按时间倒序
	ListByProduct(ctx context.Context, productID uint, page, pageSize int) ([]*Movement, int64, error)

	// ListByReference 按引用(通常是订单ID)查询，按时间正序
	ListByReference(ctx context.Context, reference string) ([]*Movement, error)
}
