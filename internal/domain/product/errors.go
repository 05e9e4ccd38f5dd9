package product

import (
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

var (
	ErrProductNotFound = apperrors.NewWithReason(apperrors.ErrCodeProductNotFound, "PRODUCT_NOT_FOUND", "商品不存在")

	ErrOutOfStock            = apperrors.NewWithReason(apperrors.ErrCodeStockViolation, "OUT_OF_STOCK", "可用库存不足")
	ErrOversaleLimitExceeded = apperrors.NewWithReason(apperrors.ErrCodeStockViolation, "OVERSALE_LIMIT_EXCEEDED", "超出允许的超卖数量")
	ErrReservedUnderflow     = apperrors.NewWithReason(apperrors.ErrCodeStockViolation, "RESERVED_STOCK_UNDERFLOW", "预留库存不能小于0")
	ErrTotalStockUnderflow   = apperrors.NewWithReason(apperrors.ErrCodeStockViolation, "TOTAL_STOCK_UNDERFLOW", "实物库存不能小于0")

	ErrProductInactive = apperrors.NewWithReason(apperrors.ErrCodeBusinessError, "PRODUCT_INACTIVE", "商品未在售")
	ErrNoActiveProduct = apperrors.NewWithReason(apperrors.ErrCodeBusinessError, "NO_ACTIVE_PRODUCT_FOR_PULL", "没有可用于拉单的在售商品")

	ErrContentIncomplete = apperrors.NewWithReason(apperrors.ErrCodeContentIncomplete, "PRODUCT_CONTENT_INCOMPLETE", "商品内容不完整，不能上架")
)
