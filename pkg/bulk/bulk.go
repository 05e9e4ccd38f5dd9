// Package bulk 批量操作执行器
//
// 逐个顺序执行，单项失败只记录原因，不影响、不回滚其他项。
package bulk

import (
	"context"
	"fmt"

	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// Failure 单项失败
type Failure[ID comparable] struct {
	ID     ID     `json:"id"`
	Reason string `json:"reason"`
}

// Result 批量结果
type Result[ID comparable] struct {
	Succeeded []ID          `json:"succeeded"`
	Failed    []Failure[ID] `json:"failed"`
}

// Handler 单项处理函数
type Handler[ID comparable] func(ctx context.Context, id ID) error

// Observer 每项完成后回调，用于打点
type Observer[ID comparable] func(id ID, err error)

// Process 顺序处理ids，永远不返回错误
// handler panic 时记为 UNKNOWN_ERROR，继续处理下一项
func Process[ID comparable](ctx context.Context, ids []ID, handler Handler[ID], observers ...Observer[ID]) Result[ID] {
	res := Result[ID]{
		Succeeded: make([]ID, 0, len(ids)),
		Failed:    make([]Failure[ID], 0),
	}

	for _, id := range ids {
		err := runOne(ctx, id, handler)
		if err != nil {
			res.Failed = append(res.Failed, Failure[ID]{ID: id, Reason: apperrors.ReasonOf(err)})
		} else {
			res.Succeeded = append(res.Succeeded, id)
		}
		for _, obs := range observers {
			obs(id, err)
		}
	}
	return res
}

func runOne[ID comparable](ctx context.Context, id ID, handler Handler[ID]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, id)
}
