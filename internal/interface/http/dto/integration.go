package dto

import (
	"encoding/json"
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
)

// ListLogsQuery 集成日志查询
type ListLogsQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=SUCCESS FAILED" example:"FAILED"`
	ChannelID uint   `form:"channelId" example:"1"`
	Operation string `form:"operation" example:"CONFIRM_ORDER"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=1000" example:"200"`
}

// ListIntentsQuery 发件箱查询
type ListIntentsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING DISPATCHED DEAD" example:"DEAD"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=1000" example:"100"`
}

// IntegrationLogResponse 集成日志
type IntegrationLogResponse struct {
	ID        uint            `json:"id"`
	ChannelID uint            `json:"channelId"`
	Operation string          `json:"operation" example:"CONFIRM_ORDER"`
	Payload   json.RawMessage `json:"payload" swaggertype:"object"`
	Response  json.RawMessage `json:"response,omitempty" swaggertype:"object"`
	Status    string          `json:"status" example:"SUCCESS"`
	Error     string          `json:"error,omitempty"`
	RetryOf   *uint           `json:"retryOf,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewIntegrationLogResponses 日志列表转换
func NewIntegrationLogResponses(logs []*integration.Log) []IntegrationLogResponse {
	out := make([]IntegrationLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, IntegrationLogResponse{
			ID:        l.ID,
			ChannelID: l.ChannelID,
			Operation: string(l.Operation),
			Payload:   l.Payload,
			Response:  l.Response,
			Status:    string(l.Status),
			Error:     l.Error,
			RetryOf:   l.RetryOf,
			CreatedAt: l.CreatedAt,
		})
	}
	return out
}

// OutboxIntentResponse 发件箱记录
type OutboxIntentResponse struct {
	ID            string          `json:"id"`
	ChannelID     uint            `json:"channelId"`
	Operation     string          `json:"operation"`
	Payload       json.RawMessage `json:"payload" swaggertype:"object"`
	Status        string          `json:"status" example:"DEAD"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	LastError     string          `json:"lastError,omitempty"`
	LogID         *uint           `json:"logId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NewOutboxIntentResponse 单条转换
func NewOutboxIntentResponse(i *integration.OutboxIntent) OutboxIntentResponse {
	return OutboxIntentResponse{
		ID:            i.ID,
		ChannelID:     i.ChannelID,
		Operation:     string(i.Operation),
		Payload:       i.Payload,
		Status:        string(i.Status),
		Attempts:      i.Attempts,
		NextAttemptAt: i.NextAttemptAt,
		LastError:     i.LastError,
		LogID:         i.LogID,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

// NewOutboxIntentResponses 列表转换
func NewOutboxIntentResponses(intents []*integration.OutboxIntent) []OutboxIntentResponse {
	out := make([]OutboxIntentResponse, 0, len(intents))
	for _, i := range intents {
		out = append(out, NewOutboxIntentResponse(i))
	}
	return out
}

// ListingHistoryResponse 上架状态变更记录
type ListingHistoryResponse struct {
	ID             uint      `json:"id"`
	ListingID      uint      `json:"listingId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewListingHistoryResponses 列表转换
func NewListingHistoryResponses(hs []*channel.ListingHistory) []ListingHistoryResponse {
	out := make([]ListingHistoryResponse, 0, len(hs))
	for _, h := range hs {
		out = append(out, ListingHistoryResponse{
			ID:             h.ID,
			ListingID:      h.ListingID,
			PreviousStatus: string(h.PreviousStatus),
			NewStatus:      string(h.NewStatus),
			Reason:         h.Reason,
			CreatedAt:      h.CreatedAt,
		})
	}
	return out
}
