package integration

import (
	"encoding/json"
	"time"
)

// Payload 各操作的强类型载荷
// 每个实现只对应一个Operation，序列化后原样写入集成日志，重试时按字节重放
type Payload interface {
	Operation() Operation
}

// ListProductPayload LIST_PRODUCT
type ListProductPayload struct {
	ListingID      uint   `json:"listingId,omitempty"`
	ProductID      uint   `json:"productId"`
	SKU            string `json:"sku"`
	MarketplaceSKU string `json:"marketplaceSku"`
	Title          string `json:"title"`
	Price          int64  `json:"price"`
	Reason         string `json:"reason,omitempty"`
}

func (ListProductPayload) Operation() Operation { return OpListProduct }

// DelistProductPayload DELIST_PRODUCT
type DelistProductPayload struct {
	ListingID      uint   `json:"listingId"`
	ProductID      uint   `json:"productId"`
	MarketplaceSKU string `json:"marketplaceSku"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
}

func (DelistProductPayload) Operation() Operation { return OpDelistProduct }

// UpdateListingPricePayload UPDATE_LISTING_PRICE，携带更新后的全部价格字段
type UpdateListingPricePayload struct {
	ListingID        uint   `json:"listingId"`
	MarketplaceSKU   string `json:"marketplaceSku"`
	CurrentPrice     int64  `json:"currentPrice"`
	DiscountAmount   int64  `json:"discountAmount"`
	MarkupAmount     int64  `json:"markupAmount"`
	FollowsBasePrice bool   `json:"followsBasePrice"`
}

func (UpdateListingPricePayload) Operation() Operation { return OpUpdateListingPrice }

// OrderPayload 订单状态变更通知
// Op 决定具体是 CONFIRM/CANCEL/PACK/SHIP/RETURN 中的哪一个
type OrderPayload struct {
	Op              Operation `json:"-"`
	OrderID         uint      `json:"orderId"`
	ExternalOrderID string    `json:"externalOrderId"`
	Status          string    `json:"status"`
}

func (p OrderPayload) Operation() Operation { return p.Op }

// ShippingLabelPayload GENERATE_SHIPPING_LABEL
type ShippingLabelPayload struct {
	OrderID         uint   `json:"orderId"`
	ExternalOrderID string `json:"externalOrderId"`
}

func (ShippingLabelPayload) Operation() Operation { return OpGenerateShippingLabel }

// InvoicePayload GENERATE_INVOICE
type InvoicePayload struct {
	OrderID         uint   `json:"orderId"`
	ExternalOrderID string `json:"externalOrderId"`
	TotalAmount     int64  `json:"totalAmount"`
}

func (InvoicePayload) Operation() Operation { return OpGenerateInvoice }

// PullPayload PULL_ORDERS 与 PULL_ORDER_UPDATES 共用
type PullPayload struct {
	Op          Operation `json:"-"`
	ChannelID   uint      `json:"channelId"`
	TriggeredAt time.Time `json:"triggeredAt"`
}

func (p PullPayload) Operation() Operation { return p.Op }

// NewOrderPayload 订单操作载荷
func NewOrderPayload(op Operation, orderID uint, externalOrderID, status string) OrderPayload {
	return OrderPayload{Op: op, OrderID: orderID, ExternalOrderID: externalOrderID, Status: status}
}

var decoders = map[Operation]func(json.RawMessage) (Payload, error){
	OpListProduct:           decodeAs[ListProductPayload],
	OpDelistProduct:         decodeAs[DelistProductPayload],
	OpUpdateListingPrice:    decodeAs[UpdateListingPricePayload],
	OpConfirmOrder:          decodeOrder(OpConfirmOrder),
	OpCancelOrder:           decodeOrder(OpCancelOrder),
	OpPackOrder:             decodeOrder(OpPackOrder),
	OpShipOrder:             decodeOrder(OpShipOrder),
	OpReturnOrder:           decodeOrder(OpReturnOrder),
	OpGenerateShippingLabel: decodeAs[ShippingLabelPayload],
	OpGenerateInvoice:       decodeAs[InvoicePayload],
	OpPullOrders:            decodePull(OpPullOrders),
	OpPullOrderUpdates:      decodePull(OpPullOrderUpdates),
}

// Encode 序列化载荷
func Encode(p Payload) (Operation, json.RawMessage, error) {
	op := p.Operation()
	if !op.Valid() {
		return op, nil, ErrUnknownOperation.WithDetail("%s", op)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return op, nil, err
	}
	return op, raw, nil
}

// Decode 按操作类型反序列化为对应的载荷结构
func Decode(op Operation, raw json.RawMessage) (Payload, error) {
	dec, ok := decoders[op]
	if !ok {
		return nil, ErrUnknownOperation.WithDetail("%s", op)
	}
	return dec(raw)
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeOrder(op Operation) func(json.RawMessage) (Payload, error) {
	return func(raw json.RawMessage) (Payload, error) {
		var p OrderPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		p.Op = op
		return p, nil
	}
}

func decodePull(op Operation) func(json.RawMessage) (Payload, error) {
	return func(raw json.RawMessage) (Payload, error) {
		var p PullPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		p.Op = op
		return p, nil
	}
}
