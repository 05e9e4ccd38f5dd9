package order

import (
	"context"
	"time"
)

// ListParams 订单列表查询参数
type ListParams struct {
	Status    Status
	ChannelID uint
	Page      int
	PageSize  int
}

// Repository 订单仓储接口
// 事务通过context传递，实现方从ctx中取事务句柄
type Repository interface {
	// Create 创建订单(包含订单明细)，(channel_id, external_order_id)重复时返回ErrDuplicateExternalOrder
	Create(ctx context.Context, order *Order) error

	// FindByID 根据ID查找订单(包含订单明细)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// LockByID 在当前事务内对订单行加排他锁后读取(SELECT ... FOR UPDATE)
	LockByID(ctx context.Context, id uint) (*Order, error)

	// FindByExternalID 根据渠道+渠道订单号查找
	FindByExternalID(ctx context.Context, channelID uint, externalOrderID string) (*Order, error)

	// ExistsByExternalID 拉单时判断是否已经导入
	ExistsByExternalID(ctx context.Context, channelID uint, externalOrderID string) (bool, error)

	// UpdateStatus 只更新状态列
	UpdateStatus(ctx context.Context, id uint, status Status) error

	// StampCustomerCancelled 记录客户取消时间
	StampCustomerCancelled(ctx context.Context, id uint, at time.Time) error

	// StampWarehouseReceived 记录仓库签收退货时间
	StampWarehouseReceived(ctx context.Context, id uint, at time.Time) error

	// List 分页查询，按创建时间倒序
	List(ctx context.Context, params ListParams) ([]*Order, int64, error)
}
