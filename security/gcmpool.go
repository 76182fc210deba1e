package security

import (
	"fmt"
	"sync"
)

// CtxPool is a bounded pool of reusable GCM contexts. Acquire hands out an
// idle context, constructs a fresh one while fewer than maxSize have ever
// been built, and otherwise blocks until a Handle is released. The
// construction counter never decreases: once maxSize contexts exist the
// pool is strictly a circulation pool.
type CtxPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	idle    []*GCMContext
	created int
	max     int
	factory func() (*GCMContext, error)
}

// NewCtxPool creates a pool bounded at maxSize simultaneously live
// contexts. The factory is invoked lazily, outside the pool lock, each
// time a fresh context is needed.
func NewCtxPool(maxSize int, factory func() (*GCMContext, error)) (*CtxPool, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", maxSize)
	}
	if factory == nil {
		return nil, fmt.Errorf("pool requires a context factory")
	}
	p := &CtxPool{max: maxSize, factory: factory}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

// Acquire returns a leased context. It blocks while the pool is at
// capacity with no idle context; any release wakes one waiter. There is no
// FIFO guarantee between waiters.
func (p *CtxPool) Acquire() (*Handle, error) {
	p.mu.Lock()
	for {
		if n := len(p.idle); n > 0 {
			ctx := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.mu.Unlock()
			return &Handle{pool: p, ctx: ctx}, nil
		}
		if p.created < p.max {
			p.created++
			p.mu.Unlock()
			ctx, err := p.factory()
			if err != nil {
				p.mu.Lock()
				p.created--
				p.cond.Signal()
				p.mu.Unlock()
				return nil, fmt.Errorf("constructing pooled context: %w", err)
			}
			return &Handle{pool: p, ctx: ctx}, nil
		}
		p.cond.Wait()
	}
}

// Available reports the number of idle contexts currently in the pool.
func (p *CtxPool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// release resets the context and returns it to the idle stack, waking one
// waiter. Contexts are never destroyed here; they circulate.
func (p *CtxPool) release(ctx *GCMContext) {
	p.mu.Lock()
	ctx.Reset()
	p.idle = append(p.idle, ctx)
	p.cond.Signal()
	p.mu.Unlock()
}

// Handle is a lease of a GCMContext from a CtxPool. Exactly one release
// returns the context to the pool; Release is idempotent. A released
// Handle yields a nil context, which callers must not use.
type Handle struct {
	pool *CtxPool
	ctx  *GCMContext
}

// Ctx returns the leased context, or nil after Release.
func (h *Handle) Ctx() *GCMContext {
	return h.ctx
}

// Release returns the context to the pool. Safe to call more than once.
func (h *Handle) Release() {
	if h == nil || h.ctx == nil {
		return
	}
	ctx := h.ctx
	h.ctx = nil
	pool := h.pool
	h.pool = nil
	pool.release(ctx)
}
