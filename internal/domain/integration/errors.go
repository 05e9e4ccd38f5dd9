package integration

import (
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

var (
	ErrLogNotFound    = apperrors.NewWithReason(apperrors.ErrCodeIntegrationNotFound, "INTEGRATION_LOG_NOT_FOUND", "集成日志不存在")
	ErrIntentNotFound = apperrors.NewWithReason(apperrors.ErrCodeIntegrationNotFound, "OUTBOX_INTENT_NOT_FOUND", "发件箱记录不存在")

	ErrUnknownOperation = apperrors.NewWithReason(apperrors.ErrCodeInvalidParams, "UNKNOWN_OPERATION", "未知的集成操作")
	ErrIntentNotDead    = apperrors.NewWithReason(apperrors.ErrCodeInvalidState, "OUTBOX_INTENT_NOT_DEAD", "只有DEAD状态的记录可以重新入队")
)
