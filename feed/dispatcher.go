// Package feed decodes feed messages and dispatches them to the SDK and the
// application.
//
// The Dispatcher reads raw messages from a Source. System messages drive the
// recovery state machine. Event messages invalidate cached data that they
// make stale and are then fanned out to subscribers of OnMessage.
package feed

import (
	"context"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/internal/eventbus"
	"github.com/oddsfeed/go-uofsdk/urn"
)

var log = logging.Logger("feed")

// Recoverer is informed of messages that drive producer recovery.
type Recoverer interface {
	Alive(producerID int, generated time.Time, subscribed bool)
	SnapshotComplete(producerID int, requestID int64)
	MessageProcessed(producerID int, generated time.Time)
	ConnectionDown()
	ConnectionUp()
}

// Invalidator drops cached data made stale by feed messages.
type Invalidator interface {
	InvalidateFixture(id urn.URN)
	InvalidateStatus(id urn.URN)
}

// Delivery is a decoded message delivered to subscribers.
type Delivery struct {
	RoutingKey RoutingKey
	Message    Message
	Received   time.Time
}

// Dispatcher decodes messages from a Source and dispatches them.
type Dispatcher struct {
	recoverer   Recoverer
	invalidator Invalidator
	cfg         config
	messages    *eventbus.Bus[Delivery]
}

// NewDispatcher creates a Dispatcher. invalidator may be nil.
func NewDispatcher(recoverer Recoverer, invalidator Invalidator, options ...Option) (*Dispatcher, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		recoverer:   recoverer,
		invalidator: invalidator,
		cfg:         opts,
		messages:    eventbus.New[Delivery](),
	}, nil
}

// OnMessage creates a channel that receives every processed event message.
// System messages are consumed by the dispatcher and not delivered.
// Calling the returned cancel function closes the channel.
func (d *Dispatcher) OnMessage() (<-chan Delivery, context.CancelFunc) {
	return d.messages.Subscribe()
}

// Run dispatches messages from src until ctx is done or src is closed.
func (d *Dispatcher) Run(ctx context.Context, src Source) error {
	messages := src.Messages()
	events := src.ConnectionEvents()
	for messages != nil || events != nil {
		select {
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			d.Dispatch(msg)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			d.connection(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	log.Info("Feed source closed")
	return nil
}

// Dispatch processes a single raw message. Messages that cannot be parsed
// are logged and dropped.
func (d *Dispatcher) Dispatch(raw RawMessage) {
	rk, err := ParseRoutingKey(raw.RoutingKey)
	if err != nil {
		log.Warnw("Dropping message with invalid routing key", "key", raw.RoutingKey, "err", err)
		d.cfg.metrics.FeedMessage("invalid")
		return
	}
	if rk.NodeID != 0 && d.cfg.nodeID != 0 && rk.NodeID != d.cfg.nodeID {
		return
	}
	msg, err := Decode(raw.Payload)
	if err != nil {
		log.Warnw("Dropping message that cannot be decoded", "key", raw.RoutingKey, "err", err)
		d.cfg.metrics.FeedMessage("invalid")
		return
	}
	if !d.producerEnabled(msg.Product()) {
		log.Debugw("Dropping message from disabled producer", "producer", msg.Product(), "type", msg.Type())
		return
	}
	d.cfg.metrics.FeedMessage(string(msg.Type()))

	switch m := msg.(type) {
	case *Alive:
		d.recoverer.Alive(m.Product(), m.Generated(), m.IsSubscribed())
	case *SnapshotComplete:
		d.recoverer.SnapshotComplete(m.Product(), m.RequestID)
	case *FixtureChange:
		if d.invalidator != nil {
			d.invalidator.InvalidateFixture(m.Event())
		}
	case *BetSettlement:
		if d.invalidator != nil {
			d.invalidator.InvalidateStatus(m.Event())
		}
	}
	if _, ok := msg.(EventMessage); !ok {
		return
	}
	d.recoverer.MessageProcessed(msg.Product(), msg.Generated())
	d.messages.Publish(Delivery{RoutingKey: rk, Message: msg, Received: raw.Timestamp})
}

// Close closes all OnMessage channels.
func (d *Dispatcher) Close() error {
	d.messages.Close()
	return nil
}

func (d *Dispatcher) connection(ev ConnectionEvent) {
	log.Infow("Feed connection changed", "state", ev)
	switch ev {
	case Connected:
		d.recoverer.ConnectionUp()
	case Disconnected:
		d.recoverer.ConnectionDown()
	}
}

func (d *Dispatcher) producerEnabled(id int) bool {
	if d.cfg.producers == nil {
		return true
	}
	p := d.cfg.producers.Get(id)
	return !p.IsUnknown() && p.Enabled()
}
