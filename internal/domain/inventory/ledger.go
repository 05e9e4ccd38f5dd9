package inventory

import (
	"context"
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/product"
)

// Ledger 库存账本(领域服务)
// 所有方法都要求在调用方开启的事务内执行：锁商品行、校验、改计数、写流水在同一事务里
type Ledger struct {
	products  product.Repository
	movements MovementRepository
}

// NewLedger 创建库存账本
func NewLedger(products product.Repository, movements MovementRepository) *Ledger {
	return &Ledger{
		products:  products,
		movements: movements,
	}
}

// Reserve 确认订单时预留库存，按超卖策略校验
func (l *Ledger) Reserve(ctx context.Context, productID uint, qty int, ref string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	p, err := l.products.LockByID(ctx, productID)
	if err != nil {
		return err
	}
	if err := p.CheckReserve(qty); err != nil {
		return err
	}
	return l.apply(ctx, p, MovementConfirm, qty, 0, qty, ref)
}

// Release 取消订单时释放预留
func (l *Ledger) Release(ctx context.Context, productID uint, qty int, ref string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	p, err := l.products.LockByID(ctx, productID)
	if err != nil {
		return err
	}
	return l.apply(ctx, p, MovementCancel, -qty, 0, -qty, ref)
}

// Restock 退货入库：预留减少，实物增加
func (l *Ledger) Restock(ctx context.Context, productID uint, qty int, ref string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	p, err := l.products.LockByID(ctx, productID)
	if err != nil {
		return err
	}
	return l.apply(ctx, p, MovementReturn, -qty, qty, qty, ref)
}

// Consume 妥投后货物离开账本：预留与实物同时减少
func (l *Ledger) Consume(ctx context.Context, productID uint, qty int, ref string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	p, err := l.products.LockByID(ctx, productID)
	if err != nil {
		return err
	}
	return l.apply(ctx, p, MovementDeliver, -qty, -qty, -qty, ref)
}

// Adjust 人工调整实物库存，delta不能为0
func (l *Ledger) Adjust(ctx context.Context, productID uint, delta int, ref string) (*product.Product, error) {
	if delta == 0 {
		return nil, ErrInvalidDelta
	}
	if ref == "" {
		ref = DefaultAdjustReference
	}
	p, err := l.products.LockByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, p, MovementManualAdjust, 0, delta, delta, ref); err != nil {
		return nil, err
	}
	return p, nil
}

// apply 改计数并追加流水；p是已加锁读出的商品，成功后同步更新为变动后的值
func (l *Ledger) apply(ctx context.Context, p *product.Product, typ MovementType, reservedDelta, totalDelta, qty int, ref string) error {
	if p.ReservedStock+reservedDelta < 0 {
		return product.ErrReservedUnderflow.WithDetail("sku=%s,reserved=%d,delta=%d", p.SKU, p.ReservedStock, reservedDelta)
	}
	if p.TotalStock+totalDelta < 0 {
		return product.ErrTotalStockUnderflow.WithDetail("sku=%s,total=%d,delta=%d", p.SKU, p.TotalStock, totalDelta)
	}

	if err := l.products.ApplyStockDelta(ctx, p.ID, reservedDelta, totalDelta); err != nil {
		return err
	}
	p.ReservedStock += reservedDelta
	p.TotalStock += totalDelta

	return l.movements.Create(ctx, &Movement{
		ProductID:     p.ID,
		Type:          typ,
		Quantity:      qty,
		Reference:     ref,
		TotalAfter:    p.TotalStock,
		ReservedAfter: p.ReservedStock,
		CreatedAt:     time.Now(),
	})
}
