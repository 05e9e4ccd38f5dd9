package channel

import (
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

var (
	ErrChannelNotFound = apperrors.NewWithReason(apperrors.ErrCodeChannelNotFound, "CHANNEL_NOT_FOUND", "渠道不存在")
	ErrListingNotFound = apperrors.NewWithReason(apperrors.ErrCodeListingNotFound, "LISTING_NOT_FOUND", "渠道商品不存在")

	ErrChannelDisabled      = apperrors.NewWithReason(apperrors.ErrCodeChannelUnavailable, "CHANNEL_DISABLED", "渠道已停用")
	ErrChannelNotConfigured = apperrors.NewWithReason(apperrors.ErrCodeChannelUnavailable, "CHANNEL_NOT_CONFIGURED", "渠道未配置连接信息")

	ErrAlreadyListed            = apperrors.NewWithReason(apperrors.ErrCodeDuplicateEntry, "ALREADY_LISTED", "商品已在该渠道刊登")
	ErrInvalidListingTransition = apperrors.NewWithReason(apperrors.ErrCodeInvalidState, "INVALID_LISTING_TRANSITION", "渠道商品状态不允许此操作")
)
