package handler

import (
	"github.com/gin-gonic/gin"

	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/interface/http/dto"
	"github.com/xiebiao/omnichannel/pkg/response"
)

// IntegrationHandler 集成日志与发件箱运维
type IntegrationHandler struct {
	dispatcher *appintegration.Dispatcher
	relay      *appintegration.OutboxRelay
}

// NewIntegrationHandler 创建处理器
func NewIntegrationHandler(dispatcher *appintegration.Dispatcher, relay *appintegration.OutboxRelay) *IntegrationHandler {
	return &IntegrationHandler{dispatcher: dispatcher, relay: relay}
}

// ListLogs 集成日志
// @Summary      集成日志
// @Tags         集成
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string false "SUCCESS / FAILED"
// @Param        channelId query int    false "渠道ID"
// @Param        operation query string false "操作"
// @Param        limit     query int    false "条数" default(200)
// @Success      200 {object} response.Response{data=[]dto.IntegrationLogResponse}
// @Router       /api/v1/integrations [get]
func (h *IntegrationHandler) ListLogs(c *gin.Context) {
	var q dto.ListLogsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}

	logs, err := h.dispatcher.ListLogs(c.Request.Context(), integration.ListParams{
		Status:    integration.LogStatus(q.Status),
		ChannelID: q.ChannelID,
		Operation: integration.Operation(q.Operation),
		Limit:     q.Limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewIntegrationLogResponses(logs))
}

// Retry 按原始载荷重放一次集成调用
// @Summary      重放集成调用
// @Description  新日志的retryOf指向原日志；重放失败时返回INTEGRATION_FAILURE
// @Tags         集成
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "日志ID"
// @Success      200 {object} response.Response{data=appintegration.Result}
// @Router       /api/v1/integrations/{id}/retry [post]
func (h *IntegrationHandler) Retry(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.dispatcher.Retry(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListIntents 发件箱记录
// @Summary      发件箱记录
// @Tags         集成
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "PENDING / DISPATCHED / DEAD"
// @Param        limit  query int    false "条数" default(100)
// @Success      200 {object} response.Response{data=[]dto.OutboxIntentResponse}
// @Router       /api/v1/integrations/outbox [get]
func (h *IntegrationHandler) ListIntents(c *gin.Context) {
	var q dto.ListIntentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}

	intents, err := h.relay.ListIntents(c.Request.Context(), integration.IntentStatus(q.Status), q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOutboxIntentResponses(intents))
}

// Requeue 重新投递死信
// @Summary      重新投递死信
// @Tags         集成
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "发件箱ID"
// @Success      200 {object} response.Response{data=dto.OutboxIntentResponse}
// @Failure      40002 {object} response.Response "INTENT_NOT_DEAD"
// @Router       /api/v1/integrations/outbox/{id}/requeue [post]
func (h *IntegrationHandler) Requeue(c *gin.Context) {
	intent, err := h.relay.Requeue(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOutboxIntentResponse(intent))
}
