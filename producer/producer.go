package producer

import (
	"strings"
	"time"
)

// Scope is a kind of event coverage a producer delivers.
type Scope string

const (
	Live     Scope = "live"
	Prematch Scope = "prematch"
	Virtual  Scope = "virtual"
)

// ParseScopes parses a list of scopes separated by '|', as used in the
// producer descriptions of the REST API.
func ParseScopes(s string) []Scope {
	var scopes []Scope
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			scopes = append(scopes, Scope(part))
		}
	}
	return scopes
}

const (
	// UnknownID is the id of the producer returned for lookups that match
	// no configured producer.
	UnknownID = 99

	DefaultRecoveryWindow = 72 * time.Hour
	DefaultMaxInactivity  = 20 * time.Second
)

// Config is the static description of a producer.
type Config struct {
	ID          int
	Name        string
	Description string
	APIURL      string
	Scopes      []Scope
	// RecoveryWindow is the furthest back a recovery may reach.
	RecoveryWindow time.Duration
	// MaxInactivity is how long the producer may be silent before it is
	// considered down.
	MaxInactivity time.Duration
	// Available is false for producers the account has no access to.
	Available bool
	Disabled  bool
}

// RecoveryInfo describes the last recovery request issued for a producer.
type RecoveryInfo struct {
	After        time.Time
	RequestedAt  time.Time
	RequestID    int64
	NodeID       int
	ResponseCode int
	Message      string
	Successful   bool
}

// Producer is a point-in-time view of a producer's configuration and runtime
// state.
type Producer struct {
	Config

	IsProducerDown                bool
	LastTimestampBeforeDisconnect time.Time
	LastAlive                     time.Time
	LastProcessed                 time.Time
	Recovery                      *RecoveryInfo
}

// IsAvailable reports whether the producer is accessible to the account.
func (p Producer) IsAvailable() bool {
	return p.Available
}

// IsDisabled reports whether the producer was disabled by the application.
func (p Producer) IsDisabled() bool {
	return p.Disabled
}

// Enabled reports whether messages from the producer are processed.
func (p Producer) Enabled() bool {
	return p.Available && !p.Disabled
}

// HasScope reports whether the producer covers scope.
func (p Producer) HasScope(scope Scope) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// IsUnknown reports whether p is the sentinel returned for unmatched lookups.
func (p Producer) IsUnknown() bool {
	return p.ID == UnknownID && p.Name == unknown.Name
}

var unknown = Producer{
	Config: Config{
		ID:             UnknownID,
		Name:           "Unknown",
		Description:    "Unknown producer",
		Scopes:         []Scope{Live, Prematch, Virtual},
		RecoveryWindow: DefaultRecoveryWindow,
		MaxInactivity:  DefaultMaxInactivity,
	},
	IsProducerDown: true,
}

// Unknown returns the sentinel producer.
func Unknown() Producer {
	return unknown
}
