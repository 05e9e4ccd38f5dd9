package product

import (
	"strings"
)

// EnsureListable 上架守卫：内容字段不全时返回的错误明细列出全部缺失字段
func EnsureListable(p *Product) error {
	missing := p.MissingContent()
	if len(missing) == 0 {
		return nil
	}
	return ErrContentIncomplete.WithDetail("%s", strings.Join(missing, ","))
}
