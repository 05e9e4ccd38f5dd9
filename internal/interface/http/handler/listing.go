package handler

import (
	"github.com/gin-gonic/gin"

	applisting "github.com/xiebiao/omnichannel/internal/application/listing"
	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/interface/http/dto"
	"github.com/xiebiao/omnichannel/pkg/response"
)

// ListingHandler 渠道刊登
type ListingHandler struct {
	create   *applisting.CreateListingUseCase
	statuses *applisting.StatusService
	bulk     *applisting.BulkStatusUseCase
	query    *applisting.QueryService
}

// NewListingHandler 创建刊登处理器
func NewListingHandler(
	create *applisting.CreateListingUseCase,
	statuses *applisting.StatusService,
	bulk *applisting.BulkStatusUseCase,
	query *applisting.QueryService,
) *ListingHandler {
	return &ListingHandler{create: create, statuses: statuses, bulk: bulk, query: query}
}

// CreateListing 刊登商品
// @Summary      刊登商品到渠道
// @Description  商品内容必须完整；渠道调用失败时不落库
// @Tags         刊登
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateListingRequest true "刊登信息"
// @Success      200 {object} response.Response{data=applisting.ListingResponse}
// @Failure      40004 {object} response.Response "PRODUCT_CONTENT_INCOMPLETE / ALREADY_LISTED / INTEGRATION_FAILURE"
// @Router       /api/v1/listings [post]
func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.create.Execute(c.Request.Context(), applisting.CreateListingRequest{
		ProductID:      req.ProductID,
		ChannelID:      req.ChannelID,
		MarketplaceSKU: req.MarketplaceSKU,
		Price:          req.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateStatus 修改刊登状态
// @Summary      修改刊登状态
// @Tags         刊登
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                             true "刊登ID"
// @Param        request body dto.UpdateListingStatusRequest  true "目标状态"
// @Success      200 {object} response.Response{data=applisting.ListingResponse}
// @Router       /api/v1/listings/{id}/status [patch]
func (h *ListingHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateListingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.statuses.UpdateStatus(c.Request.Context(), id, channel.ListingStatus(req.Status), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdatePrice 修改刊登价格
// @Summary      修改刊登价格
// @Description  只更新请求中给出的字段，成功后异步通知渠道
// @Tags         刊登
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                            true "刊登ID"
// @Param        request body dto.UpdateListingPriceRequest  true "价格字段"
// @Success      200 {object} response.Response{data=applisting.ListingResponse}
// @Router       /api/v1/listings/{id}/price [patch]
func (h *ListingHandler) UpdatePrice(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateListingPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.statuses.UpdatePrice(c.Request.Context(), id, applisting.PriceUpdateRequest{
		CurrentPrice:     req.CurrentPrice,
		DiscountAmount:   req.DiscountAmount,
		MarkupAmount:     req.MarkupAmount,
		FollowsBasePrice: req.FollowsBasePrice,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// BulkStatus 批量修改刊登状态
// @Summary      批量修改刊登状态
// @Tags         刊登
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.BulkListingStatusRequest true "目标状态和刊登ID"
// @Success      200 {object} response.Response{data=bulk.Result[uint]}
// @Router       /api/v1/listings/bulk-status [post]
func (h *ListingHandler) BulkStatus(c *gin.Context) {
	var req dto.BulkListingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.bulk.Execute(c.Request.Context(), channel.ListingStatus(req.Status), req.Reason, req.ListingIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// History 刊登状态变更记录
// @Summary      刊登状态历史
// @Tags         刊登
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "刊登ID"
// @Success      200 {object} response.Response{data=[]dto.ListingHistoryResponse}
// @Router       /api/v1/listings/{id}/history [get]
func (h *ListingHandler) History(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	hs, err := h.query.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewListingHistoryResponses(hs))
}

// ByProduct 商品在各渠道的刊登
// @Summary      商品刊登列表
// @Tags         刊登
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response{data=[]applisting.ListingResponse}
// @Router       /api/v1/products/{id}/listings [get]
func (h *ListingHandler) ByProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.query.ByProduct(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
