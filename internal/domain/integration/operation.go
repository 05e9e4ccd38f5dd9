package integration

// Operation 发往渠道适配器的操作类型
type Operation string

const (
	OpListProduct           Operation = "LIST_PRODUCT"
	OpDelistProduct         Operation = "DELIST_PRODUCT"
	OpUpdateListingPrice    Operation = "UPDATE_LISTING_PRICE"
	OpConfirmOrder          Operation = "CONFIRM_ORDER"
	OpCancelOrder           Operation = "CANCEL_ORDER"
	OpPackOrder             Operation = "PACK_ORDER"
	OpShipOrder             Operation = "SHIP_ORDER"
	OpReturnOrder           Operation = "RETURN_ORDER"
	OpGenerateShippingLabel Operation = "GENERATE_SHIPPING_LABEL"
	OpGenerateInvoice       Operation = "GENERATE_INVOICE"
	OpPullOrders            Operation = "PULL_ORDERS"
	OpPullOrderUpdates      Operation = "PULL_ORDER_UPDATES"
)

// Valid 是否属于操作目录
func (o Operation) Valid() bool {
	_, ok := decoders[o]
	return ok
}
