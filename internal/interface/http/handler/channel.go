package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/omnichannel/internal/application/channelevent"
	apporder "github.com/xiebiao/omnichannel/internal/application/order"
	"github.com/xiebiao/omnichannel/internal/interface/http/dto"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/response"
)

// WebhookSecretHeader 渠道推送携带的共享密钥
const WebhookSecretHeader = "X-Webhook-Secret"

// ChannelHandler 渠道拉单和事件推送
type ChannelHandler struct {
	pull   *apporder.PullOrdersUseCase
	auth   *channelevent.WebhookAuthenticator
	intake *channelevent.Intake
}

// NewChannelHandler 创建渠道处理器
func NewChannelHandler(pull *apporder.PullOrdersUseCase, auth *channelevent.WebhookAuthenticator, intake *channelevent.Intake) *ChannelHandler {
	return &ChannelHandler{pull: pull, auth: auth, intake: intake}
}

// PullOrders 从指定渠道拉单
// @Summary      渠道拉单
// @Tags         渠道
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "渠道ID"
// @Success      200 {object} response.Response{data=apporder.PullResult}
// @Failure      40404 {object} response.Response "CHANNEL_NOT_FOUND / CHANNEL_DISABLED / NO_ACTIVE_PRODUCT_FOR_PULL"
// @Router       /api/v1/channels/{id}/pull [post]
func (h *ChannelHandler) PullOrders(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.pull.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ReceiveEvent 渠道事件推送
// @Summary      渠道事件推送
// @Description  渠道用共享密钥推送客户取消、仓库签收退货事件；密钥不匹配返回HTTP 401
// @Tags         渠道
// @Accept       json
// @Produce      json
// @Param        id               path   int                      true "渠道ID"
// @Param        X-Webhook-Secret header string                   true "共享密钥"
// @Param        request          body   dto.ChannelEventRequest  true "事件"
// @Success      200 {object} response.Response{data=channelevent.Outcome}
// @Failure      401 {object} response.Response "INVALID_WEBHOOK_SECRET"
// @Router       /api/v1/channels/{id}/events [post]
func (h *ChannelHandler) ReceiveEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.auth.Verify(ctx, id, c.GetHeader(WebhookSecretHeader)); err != nil {
		if errors.Is(err, apperrors.ErrInvalidSecret) {
			response.ErrorWithStatus(c, http.StatusUnauthorized, err)
			return
		}
		response.Error(c, err)
		return
	}

	var req dto.ChannelEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, channelevent.ErrInvalidEvent.WithDetail("%s", err.Error()))
		return
	}
	event := channelevent.Event{
		Type:            channelevent.EventType(req.Type),
		ExternalOrderID: req.ExternalOrderID,
	}
	if req.OccurredAt != "" {
		at, err := time.Parse(time.RFC3339Nano, req.OccurredAt)
		if err != nil {
			response.Error(c, channelevent.ErrInvalidEvent.WithDetail("occurredAt must be ISO-8601"))
			return
		}
		event.OccurredAt = &at
	}

	outcome, err := h.intake.Receive(ctx, id, event)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, outcome)
}
