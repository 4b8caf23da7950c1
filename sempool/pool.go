// Package sempool provides a bounded pool of per-id lock units.
//
// A Pool has a fixed number of reusable units. Acquiring an id binds a free
// unit to that id, or returns the unit already bound to it. The binding is
// reference counted and the unit returns to the pool when every acquisition
// of the id has been released. When all units are bound, acquiring a new id
// waits, in FIFO order, for a unit to be freed.
//
// A unit is itself a lock. Holders of the same id call Lock and Unlock on
// the shared unit to serialize their work on that id.
package sempool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"golang.org/x/sync/semaphore"
)

// ErrNotAcquired is returned when releasing an id that has no outstanding
// acquisitions.
var ErrNotAcquired = fmt.Errorf("%w: id not acquired", apierror.ErrInvalidOperation)

var ErrClosed = errors.New("semaphore pool closed")

// Unit is a reusable lock bound to at most one id at a time.
type Unit struct {
	index int
	sem   *semaphore.Weighted
}

// Index identifies the unit within its pool.
func (u *Unit) Index() int {
	return u.index
}

// Lock blocks until the unit is locked or ctx is done.
func (u *Unit) Lock(ctx context.Context) error {
	return u.sem.Acquire(ctx, 1)
}

// TryLock locks the unit if it is not already locked.
func (u *Unit) TryLock() bool {
	return u.sem.TryAcquire(1)
}

func (u *Unit) Unlock() {
	u.sem.Release(1)
}

type grant struct {
	id      string
	unit    *Unit
	refs    int
	granted bool
	ready   chan struct{}
	err     error
}

// Pool binds ids to a fixed number of units.
type Pool struct {
	capacity int

	mu      sync.Mutex
	closed  bool
	free    []*Unit
	grants  map[string]*grant
	pending []*grant
}

// New creates a Pool with capacity units.
func New(capacity int) (*Pool, error) {
	if capacity < 1 {
		return nil, errors.New("pool capacity must be positive")
	}
	p := &Pool{
		capacity: capacity,
		free:     make([]*Unit, capacity),
		grants:   make(map[string]*grant),
	}
	// Stack order so that unit 0 is handed out first.
	for i := range p.free {
		idx := capacity - 1 - i
		p.free[i] = &Unit{index: idx, sem: semaphore.NewWeighted(1)}
	}
	return p, nil
}

// Capacity returns the number of units in the pool.
func (p *Pool) Capacity() int {
	return p.capacity
}

// InUse returns the number of ids currently bound to a unit.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity - len(p.free)
}

// Pending returns the number of ids waiting for a unit.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Acquire returns the unit bound to id, binding a free unit first if id has
// none. Every successful call must be matched by a call to Release.
func (p *Pool) Acquire(ctx context.Context, id string) (*Unit, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	g, ok := p.grants[id]
	if ok {
		g.refs++
		if g.granted {
			p.mu.Unlock()
			return g.unit, nil
		}
	} else {
		g = &grant{
			id:    id,
			refs:  1,
			ready: make(chan struct{}),
		}
		p.grants[id] = g
		// New ids queue behind pending ones even when a unit is free.
		if len(p.pending) == 0 && len(p.free) != 0 {
			p.bindLocked(g)
			p.mu.Unlock()
			return g.unit, nil
		}
		p.pending = append(p.pending, g)
	}
	p.mu.Unlock()

	select {
	case <-g.ready:
		if g.err != nil {
			return nil, g.err
		}
		return g.unit, nil
	case <-ctx.Done():
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.refs--
	if g.refs == 0 {
		if g.granted {
			p.unbindLocked(g)
		} else {
			p.dequeueLocked(g)
			delete(p.grants, id)
		}
	}
	return nil, ctx.Err()
}

// Release releases one acquisition of id. The unit is returned to the pool
// once all acquisitions of id are released.
func (p *Pool) Release(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.grants[id]
	if !ok || !g.granted {
		return fmt.Errorf("%w: %s", ErrNotAcquired, id)
	}
	g.refs--
	if g.refs == 0 {
		p.unbindLocked(g)
	}
	return nil
}

// Close fails all pending and future acquisitions. Units already granted
// remain valid until released.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, g := range p.pending {
		delete(p.grants, g.id)
		g.err = ErrClosed
		close(g.ready)
	}
	p.pending = nil
	return nil
}

func (p *Pool) bindLocked(g *grant) {
	last := len(p.free) - 1
	g.unit = p.free[last]
	p.free = p.free[:last]
	g.granted = true
}

// unbindLocked returns the unit of g to the pool and hands free units to
// pending ids in arrival order.
func (p *Pool) unbindLocked(g *grant) {
	delete(p.grants, g.id)
	p.free = append(p.free, g.unit)
	for len(p.pending) != 0 && len(p.free) != 0 {
		next := p.pending[0]
		p.pending[0] = nil
		p.pending = p.pending[1:]
		p.bindLocked(next)
		close(next.ready)
	}
}

func (p *Pool) dequeueLocked(g *grant) {
	for i, pg := range p.pending {
		if pg == g {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}
