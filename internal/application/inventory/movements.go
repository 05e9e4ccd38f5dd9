package inventory

import (
	"context"

	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/product"
)

// MovementQuery 库存流水查询
type MovementQuery struct {
	products  product.Repository
	movements inventory.MovementRepository
}

// NewMovementQuery 创建流水查询
func NewMovementQuery(products product.Repository, movements inventory.MovementRepository) *MovementQuery {
	return &MovementQuery{products: products, movements: movements}
}

// ByProduct 商品流水，最新的在前
func (q *MovementQuery) ByProduct(ctx context.Context, productID uint, page, pageSize int) ([]*inventory.Movement, int64, error) {
	if _, err := q.products.FindByID(ctx, productID); err != nil {
		return nil, 0, err
	}
	return q.movements.ListByProduct(ctx, productID, page, pageSize)
}
