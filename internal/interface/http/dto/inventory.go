package dto

import (
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/inventory"
)

// AdjustStockRequest 人工调整库存，delta带符号
type AdjustStockRequest struct {
	Delta     int    `json:"delta" binding:"required,ne=0" example:"-3"`
	Reference string `json:"reference" binding:"max=128" example:"盘点-2026-03"`
}

// PageQuery 通用分页参数
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"pageSize" binding:"omitempty,min=1,max=100" example:"20"`
}

// MovementResponse 库存流水
type MovementResponse struct {
	ID            uint      `json:"id"`
	ProductID     uint      `json:"productId"`
	Type          string    `json:"type" example:"CONFIRM"`
	Quantity      int       `json:"quantity" example:"2"`
	Reference     string    `json:"reference" example:"ORDER-12"`
	TotalAfter    int       `json:"totalAfter"`
	ReservedAfter int       `json:"reservedAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewMovementResponses 流水列表转换
func NewMovementResponses(ms []*inventory.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, MovementResponse{
			ID:            m.ID,
			ProductID:     m.ProductID,
			Type:          string(m.Type),
			Quantity:      m.Quantity,
			Reference:     m.Reference,
			TotalAfter:    m.TotalAfter,
			ReservedAfter: m.ReservedAfter,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out
}
