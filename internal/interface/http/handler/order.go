package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/omnichannel/internal/application/channelevent"
	apporder "github.com/xiebiao/omnichannel/internal/application/order"
	"github.com/xiebiao/omnichannel/internal/interface/http/dto"
	"github.com/xiebiao/omnichannel/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	create  *apporder.CreateOrderUseCase
	query   *apporder.QueryService
	actions *apporder.ActionService
	bulk    *apporder.BulkActionUseCase
	pull    *apporder.PullOrdersUseCase
	poller  *channelevent.Poller
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	create *apporder.CreateOrderUseCase,
	query *apporder.QueryService,
	actions *apporder.ActionService,
	bulk *apporder.BulkActionUseCase,
	pull *apporder.PullOrdersUseCase,
	poller *channelevent.Poller,
) *OrderHandler {
	return &OrderHandler{
		create:  create,
		query:   query,
		actions: actions,
		bulk:    bulk,
		pull:    pull,
		poller:  poller,
	}
}

// CreateOrder 创建订单
// @Summary      创建订单
// @Description  录入渠道订单，状态为CREATED，此时不占用库存
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "订单信息"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Failure      40009 {object} response.Response "DUPLICATE_EXTERNAL_ORDER / PRODUCT_NOT_FOUND / CHANNEL_DISABLED"
// @Router       /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	items := make([]apporder.CreateOrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = apporder.CreateOrderItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.create.Execute(c.Request.Context(), apporder.CreateOrderRequest{
		ChannelID:       req.ChannelID,
		ExternalOrderID: req.ExternalOrderID,
		DiscountCode:    req.DiscountCode,
		Items:           items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListOrders 订单列表
// @Summary      订单列表
// @Description  按状态、渠道过滤，创建时间倒序
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string false "订单状态"
// @Param        channelId query int    false "渠道ID"
// @Param        page      query int    false "页码" default(1)
// @Param        pageSize  query int    false "每页数量" default(25)
// @Success      200 {object} response.Response{data=response.PageData{list=[]apporder.OrderResponse}}
// @Router       /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.query.List(c.Request.Context(), apporder.ListOrdersRequest{
		Status:    q.Status,
		ChannelID: q.ChannelID,
		Page:      q.Page,
		PageSize:  q.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.Orders, result.Total, result.Page, result.PageSize)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Router       /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.query.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ExecuteAction 执行订单动作
// @Summary      执行订单动作
// @Description  confirm/cancel/pack/ship/deliver/return/warehouse_received/generate_shipping_label/generate_invoice，未知动作返回UNSUPPORTED_ACTION
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                     true "订单ID"
// @Param        request body dto.OrderActionRequest  true "动作"
// @Success      200 {object} response.Response{data=apporder.ActionResponse}
// @Failure      40002 {object} response.Response "INVALID_ORDER_STATE / OUT_OF_STOCK / INTEGRATION_FAILURE"
// @Router       /api/v1/orders/{id}/actions [post]
func (h *OrderHandler) ExecuteAction(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.actions.Execute(c.Request.Context(), id, apporder.Action(req.Action))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// BulkAction 批量订单动作
// @Summary      批量订单动作
// @Description  逐个执行，单个失败不影响其他订单
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.BulkOrderActionRequest true "动作和订单ID"
// @Success      200 {object} response.Response{data=bulk.Result[uint]}
// @Router       /api/v1/orders/bulk [post]
func (h *OrderHandler) BulkAction(c *gin.Context) {
	var req dto.BulkOrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.bulk.Execute(c.Request.Context(), apporder.Action(req.Action), req.OrderIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// PullAll 从全部启用渠道拉单
// @Summary      全渠道拉单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]apporder.PullResult}
// @Router       /api/v1/orders/pull [post]
func (h *OrderHandler) PullAll(c *gin.Context) {
	results, err := h.pull.ExecuteAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, results)
}

// PollUpdates 向全部启用渠道查询订单更新
// @Summary      轮询订单更新
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]channelevent.PollResult}
// @Router       /api/v1/orders/poll-updates [post]
func (h *OrderHandler) PollUpdates(c *gin.Context) {
	results, err := h.poller.PollOrderUpdates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, results)
}

// Movements 订单相关的库存流水
// @Summary      订单库存流水
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=[]dto.MovementResponse}
// @Router       /api/v1/orders/{id}/movements [get]
func (h *OrderHandler) Movements(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	ms, err := h.query.Movements(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewMovementResponses(ms))
}
