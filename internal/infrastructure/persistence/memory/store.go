// Package memory 进程内存储
//
// 实现与mysql包相同的仓储接口，用于单元测试和无数据库的本地演示。
// 事务整体串行执行，回滚时恢复到事务开始前的快照；事务外的调用同样串行，
// 因此行锁语义(LockByID)天然成立。
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	"github.com/xiebiao/omnichannel/internal/domain/product"
)

type txKey struct{}

// Store 全部表的内存版本
type Store struct {
	txMu sync.Mutex // 串行化事务与事务外调用
	mu   sync.Mutex // 保护data
	data *tables
}

type tables struct {
	seq       map[string]uint
	products  map[uint]*product.Product
	movements []*inventory.Movement
	channels  map[uint]*channel.Channel
	listings  map[uint]*channel.Listing
	histories []*channel.ListingHistory
	orders    map[uint]*order.Order
	logs      []*integration.Log
	outbox    map[string]*integration.OutboxIntent
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{data: &tables{
		seq:      map[string]uint{},
		products: map[uint]*product.Product{},
		channels: map[uint]*channel.Channel{},
		listings: map[uint]*channel.Listing{},
		orders:   map[uint]*order.Order{},
		outbox:   map[string]*integration.OutboxIntent{},
	}}
}

// Transaction 实现shared.TxManager
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.restore(snapshot)
			panic(r)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func (s *Store) restore(t *tables) {
	s.mu.Lock()
	s.data = t
	s.mu.Unlock()
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// with 在锁内访问数据；事务外的调用先排队等待正在进行的事务
func (s *Store) with(ctx context.Context, fn func(t *tables) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (t *tables) next(name string) uint {
	t.seq[name]++
	return t.seq[name]
}

func (t *tables) clone() *tables {
	c := &tables{
		seq:       make(map[string]uint, len(t.seq)),
		products:  make(map[uint]*product.Product, len(t.products)),
		movements: append([]*inventory.Movement(nil), t.movements...),
		channels:  make(map[uint]*channel.Channel, len(t.channels)),
		listings:  make(map[uint]*channel.Listing, len(t.listings)),
		histories: append([]*channel.ListingHistory(nil), t.histories...),
		orders:    make(map[uint]*order.Order, len(t.orders)),
		logs:      append([]*integration.Log(nil), t.logs...),
		outbox:    make(map[string]*integration.OutboxIntent, len(t.outbox)),
	}
	for k, v := range t.seq {
		c.seq[k] = v
	}
	for k, v := range t.products {
		c.products[k] = cloneProduct(v)
	}
	for k, v := range t.channels {
		cp := *v
		c.channels[k] = &cp
	}
	for k, v := range t.listings {
		cp := *v
		c.listings[k] = &cp
	}
	for k, v := range t.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range t.outbox {
		cp := *v
		c.outbox[k] = &cp
	}
	return c
}

func cloneProduct(p *product.Product) *product.Product {
	cp := *p
	cp.Images = append([]string(nil), p.Images...)
	if p.Attributes != nil {
		cp.Attributes = make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

func cloneOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = append([]order.OrderItem(nil), o.Items...)
	return &cp
}

func sortedKeys[V any](m map[uint]V) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func paginate[T any](items []T, page, pageSize, def, max int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = def
	}
	if pageSize > max {
		pageSize = max
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
