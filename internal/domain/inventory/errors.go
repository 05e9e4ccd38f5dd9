package inventory

import (
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

var (
	ErrInvalidDelta    = apperrors.NewWithReason(apperrors.ErrCodeInvalidParams, "INVALID_DELTA", "调整数量必须是非0整数")
	ErrInvalidQuantity = apperrors.NewWithReason(apperrors.ErrCodeInvalidParams, "INVALID_QUANTITY", "数量必须大于0")
)
