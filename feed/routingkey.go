package feed

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oddsfeed/go-uofsdk/urn"
)

const routingKeySegments = 8

// RoutingKey is a parsed feed routing key of the form
// "priority.prematch.live.message_type.sport_id.event_type.event_id.node_id",
// for example "hi.-.live.odds_change.1.sr:match.12345.-".
type RoutingKey struct {
	Priority         string
	PreMatchInterest bool
	LiveInterest     bool
	VirtualInterest  bool
	MessageType      MessageType
	// SportID is nil for messages not bound to a sport.
	SportID *urn.URN
	// EventID is nil for messages not bound to an event.
	EventID *urn.URN
	// NodeID is zero if the message is not addressed to a node.
	NodeID int
}

// ParseRoutingKey parses key. Keys with fewer than 8 segments and malformed
// ids are format errors.
func ParseRoutingKey(key string) (RoutingKey, error) {
	parts := strings.Split(key, ".")
	if len(parts) < routingKeySegments {
		return RoutingKey{}, fmt.Errorf("%w: routing key %q has %d segments, expected %d", ErrFormat, key, len(parts), routingKeySegments)
	}

	rk := RoutingKey{
		Priority:         parts[0],
		PreMatchInterest: parts[1] == "pre",
		LiveInterest:     parts[2] == "live",
		VirtualInterest:  parts[2] == "virt",
		MessageType:      MessageType(parts[3]),
	}
	if rk.MessageType == "" || rk.MessageType == "-" {
		return RoutingKey{}, fmt.Errorf("%w: routing key %q has no message type", ErrFormat, key)
	}

	sportID, err := parseSportID(parts[4])
	if err != nil {
		return RoutingKey{}, fmt.Errorf("%w: routing key %q: %s", ErrFormat, key, err)
	}
	rk.SportID = sportID

	if parts[5] != "-" && parts[6] != "-" {
		id, err := urn.Parse(parts[5] + ":" + parts[6])
		if err != nil {
			return RoutingKey{}, fmt.Errorf("%w: routing key %q: %s", ErrFormat, key, err)
		}
		rk.EventID = &id
	}

	if node := parts[7]; node != "-" && node != "" {
		rk.NodeID, err = strconv.Atoi(node)
		if err != nil {
			return RoutingKey{}, fmt.Errorf("%w: routing key %q has invalid node id %q", ErrFormat, key, node)
		}
	}
	return rk, nil
}

// SportIDFromRoutingKey returns the sport id carried by key. It returns nil
// without error for message types that are not bound to a sport.
func SportIDFromRoutingKey(key string) (*urn.URN, error) {
	parts := strings.Split(key, ".")
	if len(parts) < routingKeySegments {
		return nil, fmt.Errorf("%w: routing key %q has %d segments, expected %d", ErrFormat, key, len(parts), routingKeySegments)
	}
	if !MessageType(parts[3]).eventBound() {
		return nil, nil
	}
	id, err := parseSportID(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: routing key %q: %s", ErrFormat, key, err)
	}
	return id, nil
}

func parseSportID(s string) (*urn.URN, error) {
	if s == "-" || s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid sport id %q", s)
	}
	id, err := urn.New("sr", "sport", n)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
