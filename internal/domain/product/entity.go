package product

import (
	"time"
)

// Status 商品状态
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// OversellPolicy 超卖策略
type OversellPolicy string

const (
	// OversellReject 可用库存不足时拒绝确认
	OversellReject OversellPolicy = "REJECT"
	// OversellLimited 允许可用库存为负，但不低于 -OversellLimit
	OversellLimited OversellPolicy = "LIMITED"
	// OversellUnrestricted 不限制
	OversellUnrestricted OversellPolicy = "UNRESTRICTED"
)

// Valid 是否为已知策略
func (p OversellPolicy) Valid() bool {
	switch p {
	case OversellReject, OversellLimited, OversellUnrestricted:
		return true
	}
	return false
}

// 上架内容字段名，用于 PRODUCT_CONTENT_INCOMPLETE 的明细
const (
	FieldDescription     = "description"
	FieldMetaTitle       = "metaTitle"
	FieldMetaDescription = "metaDescription"
	FieldImages          = "images"
)

// Product 商品实体
// TotalStock 是实物库存，ReservedStock 是已确认未出库订单占用的数量
type Product struct {
	ID              uint
	SKU             string
	Name            string
	BasePrice       int64 // 分
	TotalStock      int
	ReservedStock   int
	Status          Status
	OversellPolicy  OversellPolicy
	OversellLimit   int
	Description     string
	MetaTitle       string
	MetaDescription string
	Attributes      map[string]string
	Images          []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Available 可用库存 = 实物库存 - 预留库存，LIMITED策略下可以为负
func (p *Product) Available() int {
	return p.TotalStock - p.ReservedStock
}

// IsActive 是否在售
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// CheckReserve 按超卖策略判断能否再预留qty件
func (p *Product) CheckReserve(qty int) error {
	available := p.Available()
	switch p.OversellPolicy {
	case OversellReject:
		if available < qty {
			return ErrOutOfStock.WithDetail("sku=%s,available=%d,requested=%d", p.SKU, available, qty)
		}
	case OversellLimited:
		if available-qty < -p.OversellLimit {
			return ErrOversaleLimitExceeded.WithDetail("sku=%s,available=%d,requested=%d,limit=%d",
				p.SKU, available, qty, p.OversellLimit)
		}
	}
	return nil
}

// MissingContent 返回上架所需但缺失的内容字段，顺序固定
func (p *Product) MissingContent() []string {
	var missing []string
	if p.Description == "" {
		missing = append(missing, FieldDescription)
	}
	if p.MetaTitle == "" {
		missing = append(missing, FieldMetaTitle)
	}
	if p.MetaDescription == "" {
		missing = append(missing, FieldMetaDescription)
	}
	if len(p.Images) == 0 {
		missing = append(missing, FieldImages)
	}
	return missing
}
