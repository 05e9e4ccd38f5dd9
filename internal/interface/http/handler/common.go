package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// pathID 解析路径中的数字ID
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.ErrInvalidParams.WithDetail("%s must be a positive integer", name)
	}
	return uint(id), nil
}

func bindError(err error) error {
	return apperrors.ErrBindError.WithDetail("%s", err.Error())
}

func pageOrDefault(page, size, defaultSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	return page, size
}
