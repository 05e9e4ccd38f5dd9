package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/omnichannel/internal/domain/product"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *product.Product) error {
	model := toProductModel(p)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.NewWithReason(apperrors.ErrCodeDuplicateEntry, "DUPLICATE_SKU", "SKU已存在").WithDetail("%s", p.SKU)
		}
		return apperrors.Wrap(err, "创建商品失败")
	}
	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	var model ProductModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, product.ErrProductNotFound.WithDetail("id=%d", id)
		}
		return nil, apperrors.Wrap(err, "查询商品失败")
	}
	return toProductEntity(&model), nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*product.Product, error) {
	var models []ProductModel
	if err := getDB(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "批量查询商品失败")
	}
	out := make(map[uint]*product.Product, len(models))
	for i := range models {
		out[models[i].ID] = toProductEntity(&models[i])
	}
	return out, nil
}

// LockByID SELECT ... FOR UPDATE，必须在事务内调用，锁持有到事务结束
func (r *productRepository) LockByID(ctx context.Context, id uint) (*product.Product, error) {
	var model ProductModel
	err := getDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, product.ErrProductNotFound.WithDetail("id=%d", id)
		}
		return nil, apperrors.Wrap(err, "锁定商品失败")
	}
	return toProductEntity(&model), nil
}

// ApplyStockDelta 条件更新：UPDATE ... SET reserved_stock = reserved_stock + ?
// WHERE reserved_stock + ? >= 0 AND total_stock + ? >= 0
func (r *productRepository) ApplyStockDelta(ctx context.Context, id uint, reservedDelta, totalDelta int) error {
	db := getDB(ctx, r.db)
	result := db.Model(&ProductModel{}).
		Where("id = ?", id).
		Where("reserved_stock + ? >= 0 AND total_stock + ? >= 0", reservedDelta, totalDelta).
		Updates(map[string]interface{}{
			"reserved_stock": gorm.Expr("reserved_stock + ?", reservedDelta),
			"total_stock":    gorm.Expr("total_stock + ?", totalDelta),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新库存失败")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// 没有更新到行：商品不存在或会变成负数
	var model ProductModel
	if err := db.Select("id", "sku", "reserved_stock", "total_stock").First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return product.ErrProductNotFound.WithDetail("id=%d", id)
		}
		return apperrors.Wrap(err, "查询库存失败")
	}
	if model.ReservedStock+reservedDelta < 0 {
		return product.ErrReservedUnderflow.WithDetail("sku=%s,reserved=%d,delta=%d", model.SKU, model.ReservedStock, reservedDelta)
	}
	return product.ErrTotalStockUnderflow.WithDetail("sku=%s,total=%d,delta=%d", model.SKU, model.TotalStock, totalDelta)
}

func (r *productRepository) UpdateContent(ctx context.Context, p *product.Product) error {
	model := toProductModel(p)
	result := getDB(ctx, r.db).Model(&ProductModel{ID: p.ID}).
		Select("description", "meta_title", "meta_description", "attributes", "images").
		Updates(model)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新商品内容失败")
	}
	if result.RowsAffected == 0 {
		return product.ErrProductNotFound.WithDetail("id=%d", p.ID)
	}
	return nil
}

func (r *productRepository) FirstActive(ctx context.Context) (*product.Product, error) {
	var model ProductModel
	err := getDB(ctx, r.db).
		Where("status = ?", string(product.StatusActive)).
		Order("created_at ASC, id ASC").
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, product.ErrNoActiveProduct
		}
		return nil, apperrors.Wrap(err, "查询在售商品失败")
	}
	return toProductEntity(&model), nil
}

func toProductModel(p *product.Product) *ProductModel {
	return &ProductModel{
		ID:              p.ID,
		SKU:             p.SKU,
		Name:            p.Name,
		BasePrice:       p.BasePrice,
		TotalStock:      p.TotalStock,
		ReservedStock:   p.ReservedStock,
		Status:          string(p.Status),
		OversellPolicy:  string(p.OversellPolicy),
		OversellLimit:   p.OversellLimit,
		Description:     p.Description,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		Attributes:      p.Attributes,
		Images:          p.Images,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toProductEntity(m *ProductModel) *product.Product {
	return &product.Product{
		ID:              m.ID,
		SKU:             m.SKU,
		Name:            m.Name,
		BasePrice:       m.BasePrice,
		TotalStock:      m.TotalStock,
		ReservedStock:   m.ReservedStock,
		Status:          product.Status(m.Status),
		OversellPolicy:  product.OversellPolicy(m.OversellPolicy),
		OversellLimit:   m.OversellLimit,
		Description:     m.Description,
		MetaTitle:       m.MetaTitle,
		MetaDescription: m.MetaDescription,
		Attributes:      m.Attributes,
		Images:          m.Images,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
