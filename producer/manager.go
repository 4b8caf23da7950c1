// Package producer keeps track of the feed producers and their health.
//
// Producers are configured once at startup. Until the Manager is locked, the
// application may disable producers and supply the time of the last message
// processed before the previous shutdown. After Lock, only the recovery
// machinery updates producer state.
package producer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/apierror"
)

var log = logging.Logger("producer")

// Manager holds the configured producers.
type Manager struct {
	clock clock.Clock

	mu        sync.RWMutex
	locked    bool
	producers map[int]*Producer
}

// NewManager creates a Manager for the given producers.
func NewManager(configs []Config, options ...Option) (*Manager, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, errors.New("no producers configured")
	}

	producers := make(map[int]*Producer, len(configs))
	for _, cfg := range configs {
		if cfg.ID <= 0 {
			return nil, fmt.Errorf("invalid producer id %d", cfg.ID)
		}
		if _, dup := producers[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate producer id %d", cfg.ID)
		}
		if cfg.RecoveryWindow <= 0 {
			cfg.RecoveryWindow = DefaultRecoveryWindow
		}
		if cfg.MaxInactivity <= 0 {
			cfg.MaxInactivity = DefaultMaxInactivity
		}
		cfg.Scopes = append([]Scope(nil), cfg.Scopes...)
		producers[cfg.ID] = &Producer{
			Config:         cfg,
			IsProducerDown: true,
		}
	}

	return &Manager{
		clock:     opts.clock,
		producers: producers,
	}, nil
}

// Producers returns all configured producers ordered by id.
func (m *Manager) Producers() []Producer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Producer, 0, len(m.producers))
	for _, p := range m.producers {
		out = append(out, p.copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ProducersForScope returns the enabled producers that cover scope.
func (m *Manager) ProducersForScope(scope Scope) []Producer {
	var out []Producer
	for _, p := range m.Producers() {
		if p.Enabled() && p.HasScope(scope) {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the producer with the given id, or the Unknown producer.
func (m *Manager) Get(id int) Producer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.producers[id]; ok {
		return p.copy()
	}
	return Unknown()
}

// GetByName returns the producer with the given name, compared case
// insensitively, or the Unknown producer.
func (m *Manager) GetByName(name string) Producer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.producers {
		if strings.EqualFold(p.Name, name) {
			return p.copy()
		}
	}
	return Unknown()
}

// Exists reports whether id is a configured producer.
func (m *Manager) Exists(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.producers[id]
	return ok
}

// Disable marks a producer as disabled. Messages from disabled producers are
// not processed and no recovery is requested for them.
func (m *Manager) Disable(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return apierror.InvalidOperation("producer manager is locked")
	}
	p, ok := m.producers[id]
	if !ok {
		log.Warnw("Ignoring disable of unknown producer", "producer", id)
		return nil
	}
	p.Disabled = true
	log.Infow("Producer disabled", "producer", id, "name", p.Name)
	return nil
}

// AddTimestampBeforeDisconnect sets the time of the last message processed
// from the producer before the previous disconnect. Recovery for the producer
// then starts from that time. The timestamp must not be in the future and
// must lie within the producer's recovery window.
func (m *Manager) AddTimestampBeforeDisconnect(id int, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return apierror.InvalidOperation("producer manager is locked")
	}
	p, ok := m.producers[id]
	if !ok {
		return nil
	}
	if err := checkTimestamp(ts, m.clock.Now(), p.RecoveryWindow); err != nil {
		return err
	}
	p.LastTimestampBeforeDisconnect = ts
	return nil
}

// RemoveTimestampBeforeDisconnect clears the timestamp so that recovery for
// the producer requests a full snapshot.
func (m *Manager) RemoveTimestampBeforeDisconnect(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return apierror.InvalidOperation("producer manager is locked")
	}
	if p, ok := m.producers[id]; ok {
		p.LastTimestampBeforeDisconnect = time.Time{}
	}
	return nil
}

// Lock finalizes the producer configuration. It fails if no producer is
// enabled.
func (m *Manager) Lock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return nil
	}
	var enabled int
	for _, p := range m.producers {
		if p.Enabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return apierror.InvalidOperation("at least one producer must be enabled")
	}
	m.locked = true
	log.Infow("Producer manager locked", "producers", len(m.producers), "enabled", enabled)
	return nil
}

// Locked reports whether Lock has been called successfully.
func (m *Manager) Locked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locked
}

// Timestamps returns, for each producer that has one, the time recovery
// would start from: the last processed message, or failing that the
// timestamp before disconnect.
func (m *Manager) Timestamps() map[int]time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int]time.Time)
	for id, p := range m.producers {
		ts := p.LastProcessed
		if ts.IsZero() {
			ts = p.LastTimestampBeforeDisconnect
		}
		if !ts.IsZero() {
			out[id] = ts
		}
	}
	return out
}

// SetDown sets whether the producer is down. It reports whether the state
// changed.
func (m *Manager) SetDown(id int, down bool) bool {
	var changed bool
	m.update(id, func(p *Producer) {
		changed = p.IsProducerDown != down
		p.IsProducerDown = down
	})
	return changed
}

// SetLastAlive records the time of the last alive message.
func (m *Manager) SetLastAlive(id int, ts time.Time) {
	m.update(id, func(p *Producer) {
		if ts.After(p.LastAlive) {
			p.LastAlive = ts
		}
	})
}

// SetLastProcessed records the generation time of the last processed
// message. Older timestamps are ignored.
func (m *Manager) SetLastProcessed(id int, ts time.Time) {
	m.update(id, func(p *Producer) {
		if ts.After(p.LastProcessed) {
			p.LastProcessed = ts
		}
	})
}

// SetRecoveryInfo records the last recovery request.
func (m *Manager) SetRecoveryInfo(id int, info RecoveryInfo) {
	m.update(id, func(p *Producer) {
		p.Recovery = &info
	})
}

func (m *Manager) update(id int, fn func(*Producer)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.producers[id]; ok {
		fn(p)
	}
}

func checkTimestamp(ts, now time.Time, window time.Duration) error {
	if ts.IsZero() {
		return apierror.InvalidArgument("timestamp must be set")
	}
	if ts.After(now) {
		return apierror.InvalidArgument("timestamp %s is in the future", ts.Format(time.RFC3339))
	}
	if ts.Before(now.Add(-window)) {
		return apierror.InvalidArgument("timestamp %s is older than the recovery window %s", ts.Format(time.RFC3339), window)
	}
	return nil
}

func (p *Producer) copy() Producer {
	c := *p
	c.Scopes = append([]Scope(nil), p.Scopes...)
	if p.Recovery != nil {
		info := *p.Recovery
		c.Recovery = &info
	}
	return c
}
