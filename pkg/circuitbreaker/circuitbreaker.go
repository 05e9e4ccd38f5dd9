// Package circuitbreaker 渠道调用熔断器
//
// 状态: CLOSED(正常) → 连续失败达到阈值 → OPEN(直接拒绝) → Timeout后 → HALF_OPEN(放行少量探测)
// 探测成功回到CLOSED，探测失败重新OPEN。
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrOpenState 熔断打开时直接返回，不调用下游
var ErrOpenState = errors.New("circuit breaker is open")

// Settings 熔断参数
type Settings struct {
	MaxRequests      uint32        // HALF_OPEN时允许的探测请求数
	Interval         time.Duration // CLOSED时统计窗口，0表示不清零
	Timeout          time.Duration // OPEN持续时间
	FailureThreshold uint32        // 连续失败多少次打开
	OnStateChange    func(name string, from, to State)
}

// Counts 当前统计窗口内的计数
type Counts struct {
	Requests            uint32
	Successes           uint32
	Failures            uint32
	ConsecutiveFailures uint32
}

// Breaker 单个下游的熔断器
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
	now        func() time.Time
}

// New 创建熔断器，零值参数使用默认值
func New(name string, s Settings) *Breaker {
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	b := &Breaker{name: name, settings: s, now: time.Now}
	b.resetWindow(b.now())
	return b
}

// Name 熔断器名称
func (b *Breaker) Name() string { return b.name }

// Execute 在熔断保护下执行fn
func (b *Breaker) Execute(fn func() error) error {
	gen, err := b.before()
	if err != nil {
		return err
	}
	err = fn()
	b.after(gen, err == nil)
	return err
}

// State 当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, _ := b.current(b.now())
	return st
}

// Counts 当前统计
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, gen := b.current(b.now())
	if st == StateOpen {
		return gen, ErrOpenState
	}
	if st == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests {
		return gen, ErrOpenState
	}
	b.counts.Requests++
	return gen, nil
}

func (b *Breaker) after(gen uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	st, cur := b.current(now)
	// 请求期间状态已经切换过，结果不再计入
	if cur != gen {
		return
	}

	if ok {
		b.counts.Successes++
		b.counts.ConsecutiveFailures = 0
		if st == StateHalfOpen {
			b.transition(StateClosed, now)
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	switch st {
	case StateClosed:
		if b.counts.ConsecutiveFailures >= b.settings.FailureThreshold {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		b.transition(StateOpen, now)
	}
}

func (b *Breaker) current(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.resetWindow(now)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.generation++

	switch to {
	case StateClosed:
		b.resetWindow(now)
	case StateOpen:
		b.counts = Counts{}
		b.expiry = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.counts = Counts{}
		b.expiry = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}

func (b *Breaker) resetWindow(now time.Time) {
	b.counts = Counts{}
	if b.settings.Interval > 0 {
		b.expiry = now.Add(b.settings.Interval)
	} else {
		b.expiry = time.Time{}
	}
}

// Group 按名称懒创建熔断器，每个渠道一个
type Group struct {
	settings Settings

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewGroup 创建熔断器组
func NewGroup(s Settings) *Group {
	return &Group{settings: s, breakers: make(map[string]*Breaker)}
}

// Get 取出（或创建）名为name的熔断器
func (g *Group) Get(name string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[name]
	if !ok {
		b = New(name, g.settings)
		g.breakers[name] = b
	}
	return b
}
