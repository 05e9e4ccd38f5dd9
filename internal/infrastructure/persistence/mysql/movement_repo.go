package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// movementRepository 库存流水只追加，不提供Update/Delete
type movementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) inventory.MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Create(ctx context.Context, m *inventory.Movement) error {
	model := &InventoryMovementModel{
		ProductID:     m.ProductID,
		Type:          string(m.Type),
		Quantity:      m.Quantity,
		Reference:     m.Reference,
		TotalAfter:    m.TotalAfter,
		ReservedAfter: m.ReservedAfter,
		CreatedAt:     m.CreatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入库存流水失败")
	}
	m.ID = model.ID
	return nil
}

func (r *movementRepository) ListByProduct(ctx context.Context, productID uint, page, pageSize int) ([]*inventory.Movement, int64, error) {
	page, pageSize = normalizePage(page, pageSize, 20, 100)

	var total int64
	query := getDB(ctx, r.db).Model(&InventoryMovementModel{}).Where("product_id = ?", productID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存流水总数失败")
	}

	var models []InventoryMovementModel
	err := query.Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存流水失败")
	}
	return toMovements(models), total, nil
}

func (r *movementRepository) ListByReference(ctx context.Context, reference string) ([]*inventory.Movement, error) {
	var models []InventoryMovementModel
	err := getDB(ctx, r.db).Where("reference = ?", reference).Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询库存流水失败")
	}
	return toMovements(models), nil
}

func toMovements(models []InventoryMovementModel) []*inventory.Movement {
	out := make([]*inventory.Movement, len(models))
	for i, m := range models {
		out[i] = &inventory.Movement{
			ID:            m.ID,
			ProductID:     m.ProductID,
			Type:          inventory.MovementType(m.Type),
			Quantity:      m.Quantity,
			Reference:     m.Reference,
			TotalAfter:    m.TotalAfter,
			ReservedAfter: m.ReservedAfter,
			CreatedAt:     m.CreatedAt,
		}
	}
	return out
}
