package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PollFunc 单次轮询
type PollFunc func(ctx context.Context) error

// Poller 固定间隔轮询
// - 同一时刻最多一个请求在途，重叠的 tick/trigger 直接跳过
// - Pause 后 tick 与 Trigger 都不再触发请求，Resume 立即刷新一次
// - Trigger 请求尽快刷新一次（多次触发合并）
type Poller struct {
	name     string
	interval time.Duration
	fn       PollFunc
	logger   *zap.Logger

	inFlight atomic.Bool
	paused   atomic.Bool
	kick     chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	skipped atomic.Int64
}

// New 创建轮询器
func New(name string, interval time.Duration, fn PollFunc, logger *zap.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.With(zap.String("poller", name)),
		kick:     make(chan struct{}, 1),
	}
}

// Start 启动轮询并立即执行一次；重复调用无效
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop 停止轮询并等待当前请求结束
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running 是否在运行
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Pause 暂停定时刷新（应用进入后台）
func (p *Poller) Pause() {
	if !p.paused.Swap(true) {
		p.logger.Debug("Poller paused")
	}
}

// Resume 恢复并立即刷新（应用回到前台）
func (p *Poller) Resume() {
	if p.paused.Swap(false) {
		p.logger.Debug("Poller resumed")
	}
	p.Trigger()
}

// Paused 是否已暂停
func (p *Poller) Paused() bool {
	return p.paused.Load()
}

// Trigger 请求尽快刷新一次，非阻塞；暂停期间忽略
func (p *Poller) Trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Skipped 因已有请求在途而跳过的次数
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

// PollOnce 执行一次轮询；已有请求在途时返回 false
func (p *Poller) PollOnce(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.logger.Debug("Poll skipped, previous request still in flight")
		return false
	}
	defer p.inFlight.Store(false)

	if err := p.fn(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("Poll failed", zap.Error(err))
	}
	return true
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.paused.Load() {
				continue
			}
			p.PollOnce(ctx)
		case <-p.kick:
			// Resume 先清除暂停再触发，暂停期间的 Trigger 只保留待处理信号
			if p.paused.Load() {
				continue
			}
			p.PollOnce(ctx)
		}
	}
}
