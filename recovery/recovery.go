// Package recovery keeps producers in sync with the feed.
//
// A producer is down until a snapshot recovery requested for it completes.
// The Coordinator requests recoveries at startup, when a producer returns
// from inactivity, and when the connection to the feed is restored. It
// watches the alive messages of each producer, marking the producer down
// when they stop arriving, and fails and retries recoveries that take too
// long.
//
// Only one recovery request per producer is outstanding at a time. A second
// request waits for the running one to complete, or for the lock timeout to
// pass.
package recovery

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/internal/eventbus"
	"github.com/oddsfeed/go-uofsdk/metrics"
	"github.com/oddsfeed/go-uofsdk/producer"
	"github.com/oddsfeed/go-uofsdk/timedlock"
)

var log = logging.Logger("recovery")

var ErrClosed = errors.New("recovery coordinator closed")

// Reason tells why a producer went up or down.
type Reason string

const (
	FirstRecoveryCompleted Reason = "first_recovery_completed"
	ReturnedFromInactivity Reason = "returned_from_inactivity"
	AliveIntervalViolation Reason = "alive_interval_violation"
	NotSubscribed          Reason = "not_subscribed"
	ConnectionDown         Reason = "connection_down"
	RecoveryFailed         Reason = "recovery_failed"
)

// StatusChange is published when a producer goes up or down.
type StatusChange struct {
	ProducerID int
	Down       bool
	Reason     Reason
	Time       time.Time
	// RecoveryID identifies the recovery attempt that brought the producer
	// up. It is zero for down events.
	RecoveryID uuid.UUID
}

type phase int

const (
	idle phase = iota
	recovering
)

type state struct {
	phase       phase
	requestID   int64
	attempt     uuid.UUID
	startedAt   time.Time
	lastAlive   time.Time
	recoveredAt time.Time
}

// Coordinator runs the recovery state machine of every producer.
type Coordinator struct {
	producers *producer.Manager
	requester Requester
	locks     *timedlock.Manager
	clock     clock.Clock
	metrics   *metrics.Collectors
	cfg       config

	requestSeq atomic.Int64
	statusBus  *eventbus.Bus[StatusChange]

	mu        sync.Mutex
	states    map[int]*state
	connected bool

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool
}

// New creates a Coordinator. The producer manager should be locked before
// Start is called.
func New(producers *producer.Manager, requester Requester, options ...Option) (*Coordinator, error) {
	if producers == nil || requester == nil {
		return nil, errors.New("producer manager and requester are required")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		producers: producers,
		requester: requester,
		locks:     timedlock.New(opts.lockTimeout, opts.clock),
		clock:     opts.clock,
		metrics:   opts.metrics,
		cfg:       opts,
		statusBus: eventbus.New[StatusChange](),
		states:    make(map[int]*state),
		connected: true,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.requestSeq.Store(opts.clock.Now().Unix() % 100000)
	return c, nil
}

// OnStatusChange creates a channel that receives producer status changes.
// Calling the returned cancel function closes the channel.
func (c *Coordinator) OnStatusChange() (<-chan StatusChange, context.CancelFunc) {
	return c.statusBus.Subscribe()
}

// Start requests a recovery for every enabled producer and starts the
// periodic checks. Recoveries start from each producer's last known
// timestamp. Start returns the errors of all failed requests.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("recovery already started")
	}
	if !c.producers.Locked() {
		log.Warnw("Starting recovery with an unlocked producer manager")
	}

	if c.cfg.checkInterval > 0 {
		ticker := c.clock.Ticker(c.cfg.checkInterval)
		c.wg.Add(1)
		go c.run(ticker)
	}

	var (
		errs  error
		errMu sync.Mutex
		wg    sync.WaitGroup
	)
	for _, p := range c.producers.Producers() {
		if !p.Enabled() {
			continue
		}
		id := p.ID
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Recover(ctx, id); err != nil {
				errMu.Lock()
				errs = multierror.Append(errs, err)
				errMu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errs
}

// Recover requests a recovery for the producer. If a recovery is already
// running, Recover waits for it to complete or for the lock timeout, and
// only requests a new recovery if the running one did not complete.
func (c *Coordinator) Recover(ctx context.Context, producerID int) error {
	if c.closed.Load() {
		return ErrClosed
	}
	p := c.producers.Get(producerID)
	if p.IsUnknown() || !p.Enabled() {
		return nil
	}
	key := strconv.Itoa(producerID)

	c.mu.Lock()
	st := c.state(producerID)
	if st.phase == recovering {
		prev := st.requestID
		// Entered under mu so that a completion after Unlock still
		// releases this wait.
		w := c.locks.Enter(key)
		c.mu.Unlock()

		log.Debugw("Recovery running, waiting for it to complete", "producer", producerID, "request", prev)
		w.Wait(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.mu.Lock()
		if st.requestID != prev || st.phase == idle {
			c.mu.Unlock()
			return nil
		}
	}
	if !c.connected {
		c.mu.Unlock()
		log.Infow("Not requesting recovery while disconnected", "producer", producerID)
		return nil
	}

	now := c.clock.Now()
	req := Request{
		After:     c.after(p, now),
		RequestID: c.requestSeq.Add(1),
		NodeID:    c.cfg.nodeID,
	}
	st.phase = recovering
	st.requestID = req.RequestID
	st.attempt = uuid.New()
	st.startedAt = now
	attempt := st.attempt
	c.mu.Unlock()

	log.Infow("Requesting recovery", "producer", producerID, "name", p.Name, "request", req.RequestID, "after", req.After, "attempt", attempt)
	resp, err := c.requester.RequestRecovery(ctx, p, req)

	info := producer.RecoveryInfo{
		After:        req.After,
		RequestedAt:  now,
		RequestID:    req.RequestID,
		NodeID:       req.NodeID,
		ResponseCode: resp.Status,
		Message:      resp.Message,
		Successful:   err == nil,
	}
	c.producers.SetRecoveryInfo(producerID, info)

	if err != nil {
		c.metrics.RecoveryRequest(producerID, "failure")
		log.Errorw("Recovery request failed", "producer", producerID, "request", req.RequestID, "err", err)
		c.mu.Lock()
		if st.requestID == req.RequestID && st.phase == recovering {
			st.phase = idle
		}
		c.mu.Unlock()
		c.locks.Release(key)
		return err
	}
	c.metrics.RecoveryRequest(producerID, "requested")
	return nil
}

// after returns the time a recovery for p starts from. Timestamps outside
// the producer's recovery window result in a full recovery.
func (c *Coordinator) after(p producer.Producer, now time.Time) time.Time {
	ts, ok := c.producers.Timestamps()[p.ID]
	if !ok {
		return time.Time{}
	}
	if ts.Before(now.Add(-p.RecoveryWindow)) {
		log.Warnw("Last timestamp is outside the recovery window, requesting full recovery", "producer", p.ID, "timestamp", ts, "window", p.RecoveryWindow)
		return time.Time{}
	}
	return ts
}

// Alive processes an alive message from the producer. An alive message
// with subscribed set to false means the feed lost the producer's state, so
// the producer is marked down and recovered again.
func (c *Coordinator) Alive(producerID int, generated time.Time, subscribed bool) {
	p := c.producers.Get(producerID)
	if p.IsUnknown() || !p.Enabled() {
		return
	}
	c.producers.SetLastAlive(producerID, generated)

	c.mu.Lock()
	st := c.state(producerID)
	st.lastAlive = c.clock.Now()
	running := st.phase == recovering
	c.mu.Unlock()

	if !subscribed {
		log.Warnw("Producer is not subscribed", "producer", producerID)
		c.setDown(producerID, NotSubscribed)
		c.mu.Lock()
		st.phase = idle
		c.mu.Unlock()
		c.spawnRecovery(producerID)
		return
	}
	if p.IsProducerDown && !running {
		c.spawnRecovery(producerID)
	}
}

// SnapshotComplete completes the recovery with the given request id. Other
// request ids are ignored.
func (c *Coordinator) SnapshotComplete(producerID int, requestID int64) {
	c.mu.Lock()
	st, ok := c.states[producerID]
	if !ok || st.phase != recovering || st.requestID != requestID {
		c.mu.Unlock()
		log.Debugw("Ignoring snapshot complete of unknown request", "producer", producerID, "request", requestID)
		return
	}
	st.phase = idle
	st.lastAlive = c.clock.Now()
	reason := ReturnedFromInactivity
	if st.recoveredAt.IsZero() {
		reason = FirstRecoveryCompleted
	}
	st.recoveredAt = c.clock.Now()
	elapsed := st.recoveredAt.Sub(st.startedAt)
	attempt := st.attempt
	c.mu.Unlock()

	log.Infow("Recovery completed", "producer", producerID, "request", requestID, "elapsed", elapsed)
	c.metrics.RecoveryRequest(producerID, "completed")
	if c.producers.SetDown(producerID, false) {
		c.metrics.SetProducerDown(producerID, false)
		c.statusBus.Publish(StatusChange{
			ProducerID: producerID,
			Reason:     reason,
			Time:       c.clock.Now(),
			RecoveryID: attempt,
		})
	}
	c.locks.Release(strconv.Itoa(producerID))
}

// MessageProcessed records the generation time of a message processed from
// the producer. The next recovery starts from the latest such time.
func (c *Coordinator) MessageProcessed(producerID int, generated time.Time) {
	c.producers.SetLastProcessed(producerID, generated)
}

// ConnectionDown marks every producer down and abandons running
// recoveries.
func (c *Coordinator) ConnectionDown() {
	c.mu.Lock()
	c.connected = false
	for _, st := range c.states {
		st.phase = idle
	}
	c.mu.Unlock()

	for _, p := range c.producers.Producers() {
		if p.Enabled() {
			c.setDown(p.ID, ConnectionDown)
			c.locks.Release(strconv.Itoa(p.ID))
		}
	}
}

// ConnectionUp requests a recovery for every enabled producer that is down.
func (c *Coordinator) ConnectionUp() {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	for _, p := range c.producers.Producers() {
		if p.Enabled() && p.IsProducerDown {
			c.spawnRecovery(p.ID)
		}
	}
}

// Check marks producers down whose alive messages stopped arriving, and
// fails and retries recoveries that ran longer than the max execution time.
func (c *Coordinator) Check() {
	now := c.clock.Now()
	for _, p := range c.producers.Producers() {
		if !p.Enabled() {
			continue
		}
		c.mu.Lock()
		st := c.state(p.ID)
		var inactive, expired bool
		switch st.phase {
		case idle:
			inactive = !p.IsProducerDown && now.Sub(st.lastAlive) > p.MaxInactivity
		case recovering:
			expired = now.Sub(st.startedAt) > c.cfg.maxExecution
			if expired {
				st.phase = idle
			}
		}
		c.mu.Unlock()

		if inactive {
			log.Warnw("Producer inactive", "producer", p.ID, "max_inactivity", p.MaxInactivity)
			c.setDown(p.ID, AliveIntervalViolation)
		}
		if expired {
			log.Warnw("Recovery timed out, requesting again", "producer", p.ID, "max_execution", c.cfg.maxExecution)
			c.metrics.RecoveryRequest(p.ID, "timeout")
			c.setDown(p.ID, RecoveryFailed)
			c.spawnRecovery(p.ID)
		}
	}
}

// Recovering reports whether a recovery is running for the producer.
func (c *Coordinator) Recovering(producerID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[producerID]
	return ok && st.phase == recovering
}

// RequestID returns the id of the last recovery requested for the producer.
func (c *Coordinator) RequestID(producerID int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[producerID]; ok {
		return st.requestID
	}
	return 0
}

// Close stops the periodic checks and waits for recoveries started in the
// background.
func (c *Coordinator) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	c.statusBus.Close()
	return nil
}

func (c *Coordinator) run(ticker *clock.Ticker) {
	defer c.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Check()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Coordinator) spawnRecovery(producerID int) {
	if c.closed.Load() {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Recover(c.ctx, producerID); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("Recovery failed", "producer", producerID, "err", err)
		}
	}()
}

func (c *Coordinator) setDown(producerID int, reason Reason) {
	if !c.producers.SetDown(producerID, true) {
		return
	}
	log.Warnw("Producer down", "producer", producerID, "reason", reason)
	c.metrics.SetProducerDown(producerID, true)
	c.statusBus.Publish(StatusChange{
		ProducerID: producerID,
		Down:       true,
		Reason:     reason,
		Time:       c.clock.Now(),
	})
}

// state returns the state of the producer. The caller must hold mu.
func (c *Coordinator) state(producerID int) *state {
	st, ok := c.states[producerID]
	if !ok {
		st = &state{lastAlive: c.clock.Now()}
		c.states[producerID] = st
	}
	return st
}
