// Package timedlock lets callers wait for a keyed event with a timeout.
//
// Wait blocks until Release is called for the same key or the timeout
// elapses. All callers waiting on a key are released together, and a Wait
// that starts after a Release waits for the next one.
package timedlock

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("timedlock")

const DefaultTimeout = 5 * time.Minute

type waitState struct {
	done    chan struct{}
	waiters int
}

// Manager tracks keyed waits.
type Manager struct {
	clock   clock.Clock
	timeout time.Duration

	mu    sync.Mutex
	waits map[string]*waitState
}

// New creates a Manager whose waits time out after timeout. A nil clock uses
// the system clock.
func New(timeout time.Duration, clk clock.Clock) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		clock:   clk,
		timeout: timeout,
		waits:   make(map[string]*waitState),
	}
}

// Waiter is a wait registered on a key. A Release of the key after the
// Waiter was created unblocks its Wait, even if Wait is called later.
type Waiter struct {
	m   *Manager
	key string
	ws  *waitState
}

// Enter registers a wait on key. The caller must call Wait on the returned
// Waiter exactly once.
func (m *Manager) Enter(key string) *Waiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.waits[key]
	if !ok {
		ws = &waitState{done: make(chan struct{})}
		m.waits[key] = ws
	}
	ws.waiters++
	return &Waiter{m: m, key: key, ws: ws}
}

// Wait blocks until the key is released, the timeout elapses or ctx is
// done. It returns true only if the key was released.
func (w *Waiter) Wait(ctx context.Context) bool {
	defer w.m.leave(w.key, w.ws)

	select {
	case <-w.ws.done:
		return true
	default:
	}
	timer := w.m.clock.Timer(w.m.timeout)
	defer timer.Stop()

	select {
	case <-w.ws.done:
		return true
	case <-timer.C:
		log.Warnw("Timed out waiting for release", "key", w.key, "timeout", w.m.timeout)
		return false
	case <-ctx.Done():
		return false
	}
}

// Wait blocks until key is released, the timeout elapses or ctx is done. It
// returns true only if key was released.
func (m *Manager) Wait(ctx context.Context, key string) bool {
	return m.Enter(key).Wait(ctx)
}

// Release unblocks every caller waiting on key. It returns the number of
// callers released.
func (m *Manager) Release(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.waits[key]
	if !ok {
		return 0
	}
	delete(m.waits, key)
	close(ws.done)
	return ws.waiters
}

// Waiting returns the number of callers waiting on key.
func (m *Manager) Waiting(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ws, ok := m.waits[key]; ok {
		return ws.waiters
	}
	return 0
}

func (m *Manager) leave(key string, ws *waitState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws.waiters--
	if ws.waiters == 0 && m.waits[key] == ws {
		delete(m.waits, key)
	}
}
