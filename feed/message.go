package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"time"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/urn"
)

// ErrFormat is returned for malformed routing keys.
var ErrFormat = errors.New("invalid routing key format")

// MessageType is the type of a feed message, as found in routing keys and
// root element names.
type MessageType string

const (
	TypeAlive                 MessageType = "alive"
	TypeSnapshotComplete      MessageType = "snapshot_complete"
	TypeFixtureChange         MessageType = "fixture_change"
	TypeBetStop               MessageType = "bet_stop"
	TypeBetSettlement         MessageType = "bet_settlement"
	TypeOddsChange            MessageType = "odds_change"
	TypeBetCancel             MessageType = "bet_cancel"
	TypeRollbackBetSettlement MessageType = "rollback_bet_settlement"
	TypeRollbackBetCancel     MessageType = "rollback_bet_cancel"
)

// eventBound reports whether messages of the type refer to a sport event.
func (t MessageType) eventBound() bool {
	switch t {
	case TypeAlive, TypeSnapshotComplete, "product_down":
		return false
	}
	return true
}

// Message is a decoded feed message.
type Message interface {
	Type() MessageType
	// Product is the id of the producer that sent the message.
	Product() int
	// Generated is the time the producer generated the message.
	Generated() time.Time
}

// EventMessage is a message about a sport event.
type EventMessage interface {
	Message
	Event() urn.URN
}

type header struct {
	ProductID int   `xml:"product,attr"`
	Timestamp int64 `xml:"timestamp,attr"`
	RequestID int64 `xml:"request_id,attr"`
}

func (h *header) Product() int {
	return h.ProductID
}

func (h *header) Generated() time.Time {
	return time.UnixMilli(h.Timestamp)
}

type eventHeader struct {
	header
	EventID urn.URN `xml:"event_id,attr"`
}

func (h *eventHeader) Event() urn.URN {
	return h.EventID
}

type Alive struct {
	header
	Subscribed int `xml:"subscribed,attr"`
}

func (*Alive) Type() MessageType { return TypeAlive }

// IsSubscribed reports whether the feed still holds the producer's
// subscription. If not, the producer must be recovered.
func (a *Alive) IsSubscribed() bool {
	return a.Subscribed != 0
}

type SnapshotComplete struct {
	header
}

func (*SnapshotComplete) Type() MessageType { return TypeSnapshotComplete }

type FixtureChange struct {
	eventHeader
	StartTime  int64 `xml:"start_time,attr"`
	ChangeType int   `xml:"change_type,attr"`
}

func (*FixtureChange) Type() MessageType { return TypeFixtureChange }

type BetStop struct {
	eventHeader
	Groups       string `xml:"groups,attr"`
	MarketStatus int    `xml:"market_status,attr"`
}

func (*BetStop) Type() MessageType { return TypeBetStop }

// Market is a market as carried by feed messages. Specifiers are kept in
// their raw "key=value|key=value" form.
type Market struct {
	ID         int       `xml:"id,attr"`
	Specifiers string    `xml:"specifiers,attr"`
	Status     int       `xml:"status,attr"`
	VoidReason int       `xml:"void_reason,attr"`
	Outcomes   []Outcome `xml:"outcome"`
}

type Outcome struct {
	ID         string  `xml:"id,attr"`
	Odds       float64 `xml:"odds,attr"`
	Active     int     `xml:"active,attr"`
	Result     int     `xml:"result,attr"`
	VoidFactor float64 `xml:"void_factor,attr"`
}

type BetSettlement struct {
	eventHeader
	Certainty int      `xml:"certainty,attr"`
	Markets   []Market `xml:"outcomes>market"`
}

func (*BetSettlement) Type() MessageType { return TypeBetSettlement }

// SportEventStatus is the event status embedded in odds changes.
type SportEventStatus struct {
	Status      int     `xml:"status,attr"`
	MatchStatus int     `xml:"match_status,attr"`
	HomeScore   float64 `xml:"home_score,attr"`
	AwayScore   float64 `xml:"away_score,attr"`
}

type Odds struct {
	BetStopReason int      `xml:"betstop_reason,attr"`
	Markets       []Market `xml:"market"`
}

type OddsChange struct {
	eventHeader
	Status *SportEventStatus `xml:"sport_event_status"`
	Odds   *Odds             `xml:"odds"`
}

func (*OddsChange) Type() MessageType { return TypeOddsChange }

type BetCancel struct {
	eventHeader
	StartTime    int64    `xml:"start_time,attr"`
	EndTime      int64    `xml:"end_time,attr"`
	SupercededBy string   `xml:"superceded_by,attr"`
	Markets      []Market `xml:"market"`
}

func (*BetCancel) Type() MessageType { return TypeBetCancel }

type RollbackBetSettlement struct {
	eventHeader
	Markets []Market `xml:"market"`
}

func (*RollbackBetSettlement) Type() MessageType { return TypeRollbackBetSettlement }

type RollbackBetCancel struct {
	eventHeader
	StartTime int64    `xml:"start_time,attr"`
	EndTime   int64    `xml:"end_time,attr"`
	Markets   []Market `xml:"market"`
}

func (*RollbackBetCancel) Type() MessageType { return TypeRollbackBetCancel }

var decoders = map[string]func() Message{
	string(TypeAlive):                 func() Message { return new(Alive) },
	string(TypeSnapshotComplete):      func() Message { return new(SnapshotComplete) },
	string(TypeFixtureChange):         func() Message { return new(FixtureChange) },
	string(TypeBetStop):               func() Message { return new(BetStop) },
	string(TypeBetSettlement):         func() Message { return new(BetSettlement) },
	string(TypeOddsChange):            func() Message { return new(OddsChange) },
	string(TypeBetCancel):             func() Message { return new(BetCancel) },
	string(TypeRollbackBetSettlement): func() Message { return new(RollbackBetSettlement) },
	string(TypeRollbackBetCancel):     func() Message { return new(RollbackBetCancel) },
}

// Decode decodes a feed message. The message type is taken from the root
// element.
func Decode(payload []byte) (Message, error) {
	root, err := rootElement(payload)
	if err != nil {
		return nil, &apierror.DeserializationError{Payload: payload, Err: err}
	}
	newMsg, ok := decoders[root]
	if !ok {
		return nil, &apierror.DeserializationError{Root: root, Payload: payload, Err: errors.New("unsupported message type")}
	}
	msg := newMsg()
	if err = xml.Unmarshal(payload, msg); err != nil {
		return nil, &apierror.DeserializationError{Root: root, Payload: payload, Err: err}
	}
	return msg, nil
}

func rootElement(payload []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("cannot find root element: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}
