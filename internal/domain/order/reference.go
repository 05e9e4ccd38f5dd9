package order

import (
	"fmt"
	"strconv"
	"time"
)

// ReferenceFor 订单ID在库存流水reference字段中的写法
func ReferenceFor(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// PulledExternalID 拉单生成的渠道订单号
// 格式:PULL-<渠道名>-<UTC日期>-<序号>，同一天重复拉取得到相同单号，从而可以跳过已存在的订单
func PulledExternalID(channelName string, day time.Time, seq string) string {
	return fmt.Sprintf("PULL-%s-%s-%s", channelName, day.UTC().Format("2006-01-02"), seq)
}
