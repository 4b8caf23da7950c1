// Package urn implements the entity identifiers used by the feed and the REST
// API. An identifier has the form prefix:type:id, for example sr:match:12345.
package urn

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrFormat is returned when a string is not a valid identifier.
var ErrFormat = errors.New("invalid urn format")

var urnRegexp = regexp.MustCompile(`^([a-zA-Z0-9]+):([a-zA-Z0-9_]+):(\d+)$`)

// ResourceTypeGroup classifies an identifier type.
type ResourceTypeGroup int

const (
	Unknown ResourceTypeGroup = iota
	Match
	Stage
	Tournament
	BasicTournament
	Season
	Draw
	Lottery
	Other
)

var typeGroups = map[string]ResourceTypeGroup{
	"match":             Match,
	"stage":             Stage,
	"tournament":        Tournament,
	"simple_tournament": BasicTournament,
	"season":            Season,
	"draw":              Draw,
	"lottery":           Lottery,
	"sport":             Other,
	"category":          Other,
	"competitor":        Other,
	"simpleteam":        Other,
	"player":            Other,
	"venue":             Other,
	"team":              Other,
	"market":            Other,
}

func (g ResourceTypeGroup) String() string {
	switch g {
	case Match:
		return "match"
	case Stage:
		return "stage"
	case Tournament:
		return "tournament"
	case BasicTournament:
		return "basic_tournament"
	case Season:
		return "season"
	case Draw:
		return "draw"
	case Lottery:
		return "lottery"
	case Other:
		return "other"
	}
	return "unknown"
}

// URN is an immutable entity identifier. It is comparable and may be used as
// a map key.
type URN struct {
	Prefix string
	Type   string
	ID     int64
}

// New creates a URN from its parts.
func New(prefix, typ string, id int64) (URN, error) {
	u := URN{Prefix: prefix, Type: typ, ID: id}
	if _, err := Parse(u.String()); err != nil {
		return URN{}, err
	}
	return u, nil
}

// Parse parses an identifier of the form prefix:type:id.
func Parse(s string) (URN, error) {
	m := urnRegexp.FindStringSubmatch(s)
	if m == nil {
		return URN{}, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	id, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return URN{}, fmt.Errorf("%w: %q: %s", ErrFormat, s, err)
	}
	if id <= 0 {
		return URN{}, fmt.Errorf("%w: %q: id must be positive", ErrFormat, s)
	}
	return URN{Prefix: m[1], Type: m[2], ID: id}, nil
}

// MustParse is like Parse but panics on error. It is intended for constants
// and tests.
func MustParse(s string) URN {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// IsZero reports whether u is the zero value.
func (u URN) IsZero() bool {
	return u == URN{}
}

// TypeGroup returns the resource type group of the identifier type.
func (u URN) TypeGroup() ResourceTypeGroup {
	if g, ok := typeGroups[u.Type]; ok {
		return g
	}
	return Unknown
}

func (u URN) String() string {
	if u.IsZero() {
		return ""
	}
	return u.Prefix + ":" + u.Type + ":" + strconv.FormatInt(u.ID, 10)
}

func (u URN) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *URN) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*u = URN{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
