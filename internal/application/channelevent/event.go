// Package channelevent 渠道侧事件对账
//
// 把渠道的客户取消、仓库签收退货等外部事件翻译成订单状态机调用。
package channelevent

import (
	"time"

	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// EventType 渠道事件类型
type EventType string

const (
	EventOrderCancelledByCustomer EventType = "ORDER_CANCELLED_BY_CUSTOMER"
	EventOrderReturnedToWarehouse EventType = "ORDER_RETURNED_TO_WAREHOUSE"
)

// Event 渠道推送或轮询得到的事件
type Event struct {
	Type            EventType  `json:"type"`
	ExternalOrderID string     `json:"externalOrderId"`
	OccurredAt      *time.Time `json:"occurredAt,omitempty"`
}

// Outcome 对账结果
// AwaitingWarehouse 为true表示客户已取消但货物在途，需要等仓库签收
type Outcome struct {
	OrderID           uint   `json:"orderId"`
	Status            string `json:"status"`
	AwaitingWarehouse bool   `json:"awaitingWarehouse"`
	Duplicate         bool   `json:"duplicate,omitempty"`
}

var (
	ErrUnsupportedEvent = apperrors.NewWithReason(apperrors.ErrCodeUnsupported, "UNSUPPORTED_EVENT", "不支持的渠道事件")
	ErrInvalidEvent     = apperrors.NewWithReason(apperrors.ErrCodeBindError, "INVALID_PAYLOAD", "渠道事件格式错误")
)

// Validate 基本字段校验
func (e Event) Validate() error {
	if e.Type == "" {
		return ErrInvalidEvent.WithDetail("type is required")
	}
	if e.ExternalOrderID == "" {
		return ErrInvalidEvent.WithDetail("externalOrderId is required")
	}
	return nil
}
