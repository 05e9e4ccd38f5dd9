package order

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/order"
)

// Action 订单操作
type Action string

const (
	ActionConfirm               Action = "confirm"
	ActionCancel                Action = "cancel"
	ActionPack                  Action = "pack"
	ActionShip                  Action = "ship"
	ActionDeliver               Action = "deliver"
	ActionReturn                Action = "return"
	ActionWarehouseReceived     Action = "warehouse_received"
	ActionGenerateShippingLabel Action = "generate_shipping_label"
	ActionGenerateInvoice       Action = "generate_invoice"
)

// WarehouseReceiver 仓库签收退货，由渠道事件对账实现
type WarehouseReceiver interface {
	MarkReturnedToWarehouseByID(ctx context.Context, orderID uint, occurredAt *time.Time) (*order.Order, error)
}

// ActionResponse 操作结果；单据类操作附带渠道返回
type ActionResponse struct {
	Order    *OrderResponse  `json:"order"`
	Document json.RawMessage `json:"document,omitempty"`
}

// ActionService 把操作名分派到具体用例，未知操作一律拒绝
type ActionService struct {
	transitions *TransitionService
	documents   *DocumentService
	warehouse   WarehouseReceiver
	orders      order.Repository
}

// NewActionService 创建操作分派
func NewActionService(transitions *TransitionService, documents *DocumentService, warehouse WarehouseReceiver, orders order.Repository) *ActionService {
	return &ActionService{
		transitions: transitions,
		documents:   documents,
		warehouse:   warehouse,
		orders:      orders,
	}
}

// Execute 执行操作
func (s *ActionService) Execute(ctx context.Context, orderID uint, action Action) (*ActionResponse, error) {
	var (
		o   *order.Order
		doc *appintegration.Result
		err error
	)

	switch Action(strings.ToLower(string(action))) {
	case ActionConfirm:
		o, err = s.transitions.Confirm(ctx, orderID)
	case ActionCancel:
		o, err = s.transitions.Cancel(ctx, orderID)
	case ActionPack:
		o, err = s.transitions.Pack(ctx, orderID)
	case ActionShip:
		o, err = s.transitions.Ship(ctx, orderID)
	case ActionDeliver:
		o, err = s.transitions.Deliver(ctx, orderID)
	case ActionReturn:
		o, err = s.transitions.Return(ctx, orderID)
	case ActionWarehouseReceived:
		o, err = s.warehouse.MarkReturnedToWarehouseByID(ctx, orderID, nil)
	case ActionGenerateShippingLabel:
		doc, err = s.documents.GenerateShippingLabel(ctx, orderID)
	case ActionGenerateInvoice:
		doc, err = s.documents.GenerateInvoice(ctx, orderID)
	default:
		return nil, order.ErrUnsupportedAction.WithDetail("%s", action)
	}
	if err != nil {
		return nil, err
	}

	resp := &ActionResponse{}
	if doc != nil {
		resp.Document = doc.Response
		if o, err = s.orders.FindByID(ctx, orderID); err != nil {
			return nil, err
		}
	}
	resp.Order = ToResponse(o)
	return resp, nil
}
