package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/omnichannel/internal/domain/order"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 订单与明细一起插入（gorm关联写入）
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return order.ErrDuplicateExternalOrder.WithDetail("channel=%d,external=%s", o.ChannelID, o.ExternalOrderID)
		}
		return apperrors.Wrap(err, "创建订单失败")
	}

	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.first(getDB(ctx, r.db).Preload("Items"), "id = ?", id)
}

// LockByID 锁订单行，同一订单的并发状态变更在这里排队
func (r *orderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	db := getDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Items")
	return r.first(db, "id = ?", id)
}

func (r *orderRepository) FindByExternalID(ctx context.Context, channelID uint, externalOrderID string) (*order.Order, error) {
	return r.first(getDB(ctx, r.db).Preload("Items"),
		"channel_id = ? AND external_order_id = ?", channelID, externalOrderID)
}

func (r *orderRepository) first(db *gorm.DB, query string, args ...interface{}) (*order.Order, error) {
	var model OrderModel
	if err := db.Where(query, args...).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

func (r *orderRepository) ExistsByExternalID(ctx context.Context, channelID uint, externalOrderID string) (bool, error) {
	var count int64
	err := getDB(ctx, r.db).Model(&OrderModel{}).
		Where("channel_id = ? AND external_order_id = ?", channelID, externalOrderID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(err, "查询订单失败")
	}
	return count > 0, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, status order.Status) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"status": string(status)})
}

func (r *orderRepository) StampCustomerCancelled(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"customer_cancelled_at": at})
}

func (r *orderRepository) StampWarehouseReceived(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"warehouse_received_at": at})
}

func (r *orderRepository) updateColumns(ctx context.Context, id uint, cols map[string]interface{}) error {
	cols["updated_at"] = time.Now()
	result := getDB(ctx, r.db).Model(&OrderModel{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新订单失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) List(ctx context.Context, params order.ListParams) ([]*order.Order, int64, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize, 25, 100)

	query := getDB(ctx, r.db).Model(&OrderModel{})
	if params.Status != "" {
		query = query.Where("status = ?", string(params.Status))
	}
	if params.ChannelID != 0 {
		query = query.Where("channel_id = ?", params.ChannelID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	var models []OrderModel
	err := query.Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:         item.ID,
			OrderID:    item.OrderID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		}
	}

	return &OrderModel{
		ID:                  o.ID,
		ChannelID:           o.ChannelID,
		ExternalOrderID:     o.ExternalOrderID,
		Status:              string(o.Status),
		TotalAmount:         o.TotalAmount,
		DiscountCode:        o.DiscountCode,
		Items:               items,
		CustomerCancelledAt: o.CustomerCancelledAt,
		WarehouseReceivedAt: o.WarehouseReceivedAt,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func toOrderEntity(m *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = order.OrderItem{
			ID:         item.ID,
			OrderID:    item.OrderID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		}
	}

	return &order.Order{
		ID:                  m.ID,
		ChannelID:           m.ChannelID,
		ExternalOrderID:     m.ExternalOrderID,
		Status:              order.Status(m.Status),
		TotalAmount:         m.TotalAmount,
		DiscountCode:        m.DiscountCode,
		Items:               items,
		CustomerCancelledAt: m.CustomerCancelledAt,
		WarehouseReceivedAt: m.WarehouseReceivedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
