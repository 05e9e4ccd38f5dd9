package handler

import (
	"github.com/gin-gonic/gin"

	appinventory "github.com/xiebiao/omnichannel/internal/application/inventory"
	"github.com/xiebiao/omnichannel/internal/interface/http/dto"
	"github.com/xiebiao/omnichannel/pkg/response"
)

// ProductHandler 商品库存
type ProductHandler struct {
	adjust    *appinventory.AdjustStockUseCase
	movements *appinventory.MovementQuery
}

// NewProductHandler 创建商品处理器
func NewProductHandler(adjust *appinventory.AdjustStockUseCase, movements *appinventory.MovementQuery) *ProductHandler {
	return &ProductHandler{adjust: adjust, movements: movements}
}

// AdjustStock 人工调整库存
// @Summary      调整库存
// @Description  delta为正入库，为负出库；调整后总库存不能低于已占用
// @Tags         商品
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                     true "商品ID"
// @Param        request body dto.AdjustStockRequest  true "调整量"
// @Success      200 {object} response.Response{data=appinventory.StockResponse}
// @Router       /api/v1/products/{id}/stock-adjustments [post]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.adjust.Execute(c.Request.Context(), appinventory.AdjustStockRequest{
		ProductID: id,
		Delta:     req.Delta,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Movements 商品库存流水
// @Summary      商品库存流水
// @Tags         商品
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int true  "商品ID"
// @Param        page     query int false "页码" default(1)
// @Param        pageSize query int false "每页数量" default(20)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.MovementResponse}}
// @Router       /api/v1/products/{id}/movements [get]
func (h *ProductHandler) Movements(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}
	page, size := pageOrDefault(q.Page, q.PageSize, 20)

	ms, total, err := h.movements.ByProduct(c.Request.Context(), id, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewMovementResponses(ms), total, page, size)
}
