package inventory

import "time"

// MovementType 库存流水类型
type MovementType string

const (
	MovementConfirm      MovementType = "CONFIRM"       // 确认订单，预留 +qty
	MovementCancel       MovementType = "CANCEL"        // 取消订单，释放预留 -qty
	MovementReturn       MovementType = "RETURN"        // 退货入库，实物 +qty
	MovementDeliver      MovementType = "DELIVER"       // 妥投，实物与预留同时 -qty
	MovementManualAdjust MovementType = "MANUAL_ADJUST" // 人工调整实物库存
)

// DefaultAdjustReference 人工调整未给出引用时使用
const DefaultAdjustReference = "API_MANUAL_ADJUST"

// Movement 库存流水，只追加不修改
// Quantity 带符号；TotalAfter/ReservedAfter 是变动后的快照，便于对账
type Movement struct {
	ID            uint
	ProductID     uint
	Type          MovementType
	Quantity      int
	Reference     string
	TotalAfter    int
	ReservedAfter int
	CreatedAt     time.Time
}
