package memory

import (
	"context"
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

type productRepository struct{ s *Store }

// Products 商品仓储
func (s *Store) Products() product.Repository { return &productRepository{s: s} }

func (r *productRepository) Create(ctx context.Context, p *product.Product) error {
	return r.s.with(ctx, func(t *tables) error {
		for _, existing := range t.products {
			if existing.SKU == p.SKU {
				return apperrors.NewWithReason(apperrors.ErrCodeDuplicateEntry, "DUPLICATE_SKU", "SKU已存在").WithDetail("%s", p.SKU)
			}
		}
		now := time.Now()
		p.ID = t.next("products")
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		t.products[p.ID] = cloneProduct(p)
		return nil
	})
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	var out *product.Product
	err := r.s.with(ctx, func(t *tables) error {
		p, ok := t.products[id]
		if !ok {
			return product.ErrProductNotFound.WithDetail("id=%d", id)
		}
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*product.Product, error) {
	out := make(map[uint]*product.Product, len(ids))
	err := r.s.with(ctx, func(t *tables) error {
		for _, id := range ids {
			if p, ok := t.products[id]; ok {
				out[id] = cloneProduct(p)
			}
		}
		return nil
	})
	return out, err
}

// LockByID 事务已串行执行，读取即等价于持锁
func (r *productRepository) LockByID(ctx context.Context, id uint) (*product.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepository) ApplyStockDelta(ctx context.Context, id uint, reservedDelta, totalDelta int) error {
	return r.s.with(ctx, func(t *tables) error {
		p, ok := t.products[id]
		if !ok {
			return product.ErrProductNotFound.WithDetail("id=%d", id)
		}
		if p.ReservedStock+reservedDelta < 0 {
			return product.ErrReservedUnderflow.WithDetail("sku=%s,reserved=%d,delta=%d", p.SKU, p.ReservedStock, reservedDelta)
		}
		if p.TotalStock+totalDelta < 0 {
			return product.ErrTotalStockUnderflow.WithDetail("sku=%s,total=%d,delta=%d", p.SKU, p.TotalStock, totalDelta)
		}
		p.ReservedStock += reservedDelta
		p.TotalStock += totalDelta
		p.UpdatedAt = time.Now()
		return nil
	})
}

func (r *productRepository) UpdateContent(ctx context.Context, p *product.Product) error {
	return r.s.with(ctx, func(t *tables) error {
		stored, ok := t.products[p.ID]
		if !ok {
			return product.ErrProductNotFound.WithDetail("id=%d", p.ID)
		}
		src := cloneProduct(p)
		stored.Description = src.Description
		stored.MetaTitle = src.MetaTitle
		stored.MetaDescription = src.MetaDescription
		stored.Attributes = src.Attributes
		stored.Images = src.Images
		stored.UpdatedAt = time.Now()
		return nil
	})
}

func (r *productRepository) FirstActive(ctx context.Context) (*product.Product, error) {
	var out *product.Product
	err := r.s.with(ctx, func(t *tables) error {
		for _, id := range sortedKeys(t.products) {
			p := t.products[id]
			if !p.IsActive() {
				continue
			}
			if out == nil || p.CreatedAt.Before(out.CreatedAt) {
				out = p
			}
		}
		if out == nil {
			return product.ErrNoActiveProduct
		}
		out = cloneProduct(out)
		return nil
	})
	return out, err
}

type movementRepository struct{ s *Store }

// Movements 库存流水仓储
func (s *Store) Movements() inventory.MovementRepository { return &movementRepository{s: s} }

func (r *movementRepository) Create(ctx context.Context, m *inventory.Movement) error {
	return r.s.with(ctx, func(t *tables) error {
		m.ID = t.next("movements")
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		cp := *m
		t.movements = append(t.movements, &cp)
		return nil
	})
}

func (r *movementRepository) ListByProduct(ctx context.Context, productID uint, page, pageSize int) ([]*inventory.Movement, int64, error) {
	var matched []*inventory.Movement
	err := r.s.with(ctx, func(t *tables) error {
		for i := len(t.movements) - 1; i >= 0; i-- {
			if t.movements[i].ProductID == productID {
				cp := *t.movements[i]
				matched = append(matched, &cp)
			}
		}
		return nil
	})
	return paginate(matched, page, pageSize, 20, 100), int64(len(matched)), err
}

func (r *movementRepository) ListByReference(ctx context.Context, reference string) ([]*inventory.Movement, error) {
	out := []*inventory.Movement{}
	err := r.s.with(ctx, func(t *tables) error {
		for _, m := range t.movements {
			if m.Reference == reference {
				cp := *m
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
