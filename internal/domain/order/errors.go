package order

import (
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// 订单领域错误定义
var (
	ErrOrderNotFound = apperrors.NewWithReason(apperrors.ErrCodeOrderNotFound, "ORDER_NOT_FOUND", "订单不存在")

	// ErrInvalidStatusTransition 状态流转表不允许的变更
	ErrInvalidStatusTransition = apperrors.NewWithReason(apperrors.ErrCodeInvalidState, "INVALID_ORDER_STATE", "订单状态不允许此操作")

	ErrDuplicateExternalOrder = apperrors.NewWithReason(apperrors.ErrCodeDuplicateEntry, "DUPLICATE_EXTERNAL_ORDER", "渠道订单号已存在")

	ErrInvalidOrderItems      = apperrors.NewWithReason(apperrors.ErrCodeInvalidParams, "INVALID_ORDER_ITEMS", "订单明细不能为空")
	ErrInvalidQuantity        = apperrors.NewWithReason(apperrors.ErrCodeInvalidParams, "INVALID_QUANTITY", "购买数量必须大于0")
	ErrInvalidExternalOrderID = apperrors.NewWithReason(apperrors.ErrCodeInvalidParams, "INVALID_EXTERNAL_ORDER_ID", "渠道订单号不能为空")

	ErrUnsupportedAction = apperrors.NewWithReason(apperrors.ErrCodeUnsupported, "UNSUPPORTED_ACTION", "不支持的订单操作")
)
