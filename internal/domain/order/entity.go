package order

import (
	"time"
)

// Status 订单状态
// 使用字符串枚举，落库、接口、渠道回调都直接使用同一组值
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusConfirmed Status = "CONFIRMED"
	StatusPacked    Status = "PACKED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusReturned  Status = "RETURNED"
)

// transitions 订单状态流转表，任何状态变更前都必须查表
var transitions = map[Status][]Status{
	StatusCreated:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPacked, StatusCancelled},
	StatusPacked:    {StatusShipped},
	StatusShipped:   {StatusDelivered, StatusReturned},
	StatusDelivered: {},
	StatusCancelled: {},
	StatusReturned:  {},
}

// AllStatuses 全部状态（用于参数校验）
func AllStatuses() []Status {
	return []Status{
		StatusCreated, StatusConfirmed, StatusPacked, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned,
	}
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal 终态没有任何出边
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransition 查表判断from→to是否合法
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Order 订单聚合根
// ExternalOrderID 是渠道侧订单号，同一渠道内唯一
type Order struct {
	ID                  uint
	ChannelID           uint
	ExternalOrderID     string
	Status              Status
	TotalAmount         int64 // 分
	DiscountCode        string
	Items               []OrderItem
	CustomerCancelledAt *time.Time
	WarehouseReceivedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderItem 订单明细，创建后不可变
// UnitPrice 是下单时的价格快照
type OrderItem struct {
	ID         uint
	OrderID    uint
	ProductID  uint
	Quantity   int
	UnitPrice  int64
	TotalPrice int64
}

// NewOrder 创建订单，初始状态CREATED，总价由明细计算
func NewOrder(channelID uint, externalOrderID string, items []OrderItem, discountCode string) (*Order, error) {
	if externalOrderID == "" {
		return nil, ErrInvalidExternalOrderID
	}
	if len(items) == 0 {
		return nil, ErrInvalidOrderItems
	}
	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		items[i].TotalPrice = items[i].UnitPrice * int64(items[i].Quantity)
	}

	now := time.Now()
	o := &Order{
		ChannelID:       channelID,
		ExternalOrderID: externalOrderID,
		Status:          StatusCreated,
		DiscountCode:    discountCode,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.TotalAmount = o.CalculateTotal()
	return o, nil
}

// CanTransitionTo 检查是否可以转换到目标状态
func (o *Order) CanTransitionTo(target Status) bool {
	return CanTransition(o.Status, target)
}

// TransitionTo 状态转换，非法转换时状态保持不变
func (o *Order) TransitionTo(target Status) error {
	if !o.CanTransitionTo(target) {
		return ErrInvalidStatusTransition.WithDetail("%s -> %s", o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// HoldsReservation 该状态下明细数量已计入预留库存
func (o *Order) HoldsReservation() bool {
	switch o.Status {
	case StatusConfirmed, StatusPacked, StatusShipped:
		return true
	}
	return false
}

// CalculateTotal 计算订单总金额
func (o *Order) CalculateTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// Reference 库存流水、集成日志中使用的订单引用
func (o *Order) Reference() string {
	return ReferenceFor(o.ID)
}
