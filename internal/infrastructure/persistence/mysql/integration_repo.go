package mysql

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

type integrationLogRepository struct {
	db *gorm.DB
}

func NewIntegrationLogRepository(db *gorm.DB) integration.LogRepository {
	return &integrationLogRepository{db: db}
}

func (r *integrationLogRepository) Create(ctx context.Context, l *integration.Log) error {
	model := &IntegrationLogModel{
		ChannelID: l.ChannelID,
		Operation: string(l.Operation),
		Payload:   string(l.Payload),
		Response:  string(l.Response),
		Status:    string(l.Status),
		Error:     l.Error,
		RetryOf:   l.RetryOf,
		CreatedAt: l.CreatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入集成日志失败")
	}
	l.ID = model.ID
	return nil
}

func (r *integrationLogRepository) FindByID(ctx context.Context, id uint) (*integration.Log, error) {
	var model IntegrationLogModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, integration.ErrLogNotFound.WithDetail("id=%d", id)
		}
		return nil, apperrors.Wrap(err, "查询集成日志失败")
	}
	return toLogEntity(&model), nil
}

func (r *integrationLogRepository) List(ctx context.Context, params integration.ListParams) ([]*integration.Log, error) {
	query := getDB(ctx, r.db).Model(&IntegrationLogModel{})
	if params.Status != "" {
		query = query.Where("status = ?", string(params.Status))
	}
	if params.ChannelID != 0 {
		query = query.Where("channel_id = ?", params.ChannelID)
	}
	if params.Operation != "" {
		query = query.Where("operation = ?", string(params.Operation))
	}
	limit := params.Limit
	if limit <= 0 {
		limit = integration.DefaultListLimit
	}

	var models []IntegrationLogModel
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询集成日志失败")
	}
	out := make([]*integration.Log, len(models))
	for i := range models {
		out[i] = toLogEntity(&models[i])
	}
	return out, nil
}

func toLogEntity(m *IntegrationLogModel) *integration.Log {
	l := &integration.Log{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Operation: integration.Operation(m.Operation),
		Payload:   json.RawMessage(m.Payload),
		Status:    integration.LogStatus(m.Status),
		Error:     m.Error,
		RetryOf:   m.RetryOf,
		CreatedAt: m.CreatedAt,
	}
	if m.Response != "" {
		l.Response = json.RawMessage(m.Response)
	}
	return l
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) integration.OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(ctx context.Context, in *integration.OutboxIntent) error {
	model := &OutboxIntentModel{
		ID:            in.ID,
		ChannelID:     in.ChannelID,
		Operation:     string(in.Operation),
		Payload:       string(in.Payload),
		Status:        string(in.Status),
		Attempts:      in.Attempts,
		NextAttemptAt: in.NextAttemptAt,
		CreatedAt:     in.CreatedAt,
		UpdatedAt:     in.UpdatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入发件箱失败")
	}
	return nil
}

func (r *outboxRepository) FindByID(ctx context.Context, id string) (*integration.OutboxIntent, error) {
	var model OutboxIntentModel
	if err := getDB(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, integration.ErrIntentNotFound.WithDetail("id=%s", id)
		}
		return nil, apperrors.Wrap(err, "查询发件箱失败")
	}
	return toIntentEntity(&model), nil
}

func (r *outboxRepository) PullPending(ctx context.Context, now time.Time, limit int) ([]*integration.OutboxIntent, error) {
	var models []OutboxIntentModel
	err := getDB(ctx, r.db).
		Where("status = ? AND next_attempt_at <= ?", string(integration.IntentPending), now).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询待发送记录失败")
	}
	return toIntents(models), nil
}

func (r *outboxRepository) ListByStatus(ctx context.Context, status integration.IntentStatus, limit int) ([]*integration.OutboxIntent, error) {
	if limit <= 0 {
		limit = integration.DefaultListLimit
	}
	query := getDB(ctx, r.db).Model(&OutboxIntentModel{})
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	var models []OutboxIntentModel
	if err := query.Order("updated_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询发件箱失败")
	}
	return toIntents(models), nil
}

// Claim 条件更新：UPDATE ... SET next_attempt_at = ? WHERE id = ? AND status = 'PENDING' AND next_attempt_at <= ?
// API进程的Flush和worker的轮询同时拿到同一条记录时只有一方能更新到行
func (r *outboxRepository) Claim(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error) {
	result := getDB(ctx, r.db).Model(&OutboxIntentModel{}).
		Where("id = ? AND status = ? AND next_attempt_at <= ?", id, string(integration.IntentPending), now).
		Updates(map[string]interface{}{
			"next_attempt_at": leaseUntil,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "占用发件箱记录失败")
	}
	return result.RowsAffected == 1, nil
}

func (r *outboxRepository) MarkDispatched(ctx context.Context, id string, logID uint) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":     string(integration.IntentDispatched),
		"attempts":   gorm.Expr("attempts + 1"),
		"log_id":     logID,
		"last_error": "",
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, logID *uint, errMsg string, next time.Time, dead bool) error {
	status := integration.IntentPending
	if dead {
		status = integration.IntentDead
	}
	return r.update(ctx, id, map[string]interface{}{
		"status":          string(status),
		"attempts":        gorm.Expr("attempts + 1"),
		"log_id":          logID,
		"last_error":      errMsg,
		"next_attempt_at": next,
	})
}

func (r *outboxRepository) Requeue(ctx context.Context, id string) error {
	result := getDB(ctx, r.db).Model(&OutboxIntentModel{}).
		Where("id = ? AND status = ?", id, string(integration.IntentDead)).
		Updates(map[string]interface{}{
			"status":          string(integration.IntentPending),
			"attempts":        0,
			"next_attempt_at": time.Now(),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "重新入队失败")
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return integration.ErrIntentNotDead
	}
	return nil
}

func (r *outboxRepository) CountByStatus(ctx context.Context) (map[integration.IntentStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := getDB(ctx, r.db).Model(&OutboxIntentModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "统计发件箱失败")
	}
	out := make(map[integration.IntentStatus]int64, len(rows))
	for _, row := range rows {
		out[integration.IntentStatus(row.Status)] = row.Count
	}
	return out, nil
}

func (r *outboxRepository) update(ctx context.Context, id string, cols map[string]interface{}) error {
	cols["updated_at"] = time.Now()
	result := getDB(ctx, r.db).Model(&OutboxIntentModel{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新发件箱失败")
	}
	if result.RowsAffected == 0 {
		return integration.ErrIntentNotFound.WithDetail("id=%s", id)
	}
	return nil
}

func toIntents(models []OutboxIntentModel) []*integration.OutboxIntent {
	out := make([]*integration.OutboxIntent, len(models))
	for i := range models {
		out[i] = toIntentEntity(&models[i])
	}
	return out
}

func toIntentEntity(m *OutboxIntentModel) *integration.OutboxIntent {
	return &integration.OutboxIntent{
		ID:            m.ID,
		ChannelID:     m.ChannelID,
		Operation:     integration.Operation(m.Operation),
		Payload:       json.RawMessage(m.Payload),
		Status:        integration.IntentStatus(m.Status),
		Attempts:      m.Attempts,
		NextAttemptAt: m.NextAttemptAt,
		LastError:     m.LastError,
		LogID:         m.LogID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
