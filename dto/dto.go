// Package dto holds the language specific data transfer objects produced by
// the REST API and consumed by the caches.
//
// A zero time.Time, a nil pointer or an empty string means the value was not
// present in the source document.
package dto

import (
	"time"

	"github.com/oddsfeed/go-uofsdk/urn"
)

// Type identifies the kind of document a DTO was built from.
type Type int

const (
	TypeUnknown Type = iota
	TypeSportEventSummary
	TypeMatchSummary
	TypeStageSummary
	TypeFixture
	TypeTournamentInfo
	TypeCompetitorProfile
	TypeDraw
	TypeLottery
)

var typeNames = map[Type]string{
	TypeUnknown:           "unknown",
	TypeSportEventSummary: "sport_event_summary",
	TypeMatchSummary:      "match_summary",
	TypeStageSummary:      "stage_summary",
	TypeFixture:           "fixture",
	TypeTournamentInfo:    "tournament_info",
	TypeCompetitorProfile: "competitor_profile",
	TypeDraw:              "draw",
	TypeLottery:           "lottery",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return typeNames[TypeUnknown]
}

type Sport struct {
	ID   urn.URN
	Name string
}

type Category struct {
	ID          urn.URN
	Name        string
	CountryCode string
}

// Tournament is a reference to the tournament an event belongs to.
type Tournament struct {
	ID       urn.URN
	Name     string
	Sport    Sport
	Category Category
}

type Season struct {
	ID         urn.URN
	Name       string
	Year       string
	StartDate  time.Time
	EndDate    time.Time
	Tournament urn.URN
}

type Round struct {
	Type      string
	Number    int
	Name      string
	GroupName string
	Phase     string
	CupRound  string
}

type Venue struct {
	ID          urn.URN
	Name        string
	Capacity    int
	CityName    string
	CountryName string
	CountryCode string
	Coordinates string
}

type Competitor struct {
	ID           urn.URN
	Name         string
	Abbreviation string
	Country      string
	CountryCode  string
	Gender       string
	// Qualifier is "home" or "away" for match competitors.
	Qualifier  string
	IsVirtual  bool
	References map[string]string
}

type Player struct {
	ID           urn.URN
	Name         string
	Type         string
	JerseyNumber int
}

// CompetitorProfile is a competitor with its roster.
type CompetitorProfile struct {
	Competitor Competitor
	Players    []Player
	Venue      *Venue
}

type EventStatus struct {
	Status      string
	MatchStatus int
	HomeScore   *float64
	AwayScore   *float64
	WinnerID    urn.URN
}

// SportEventSummary is the common content of match, stage and tournament
// summaries.
type SportEventSummary struct {
	ID           urn.URN
	Name         string
	Type         string
	Scheduled    time.Time
	ScheduledEnd time.Time
	StartTimeTBD *bool
	LiveOdds     string
	Sport        *Sport
	Tournament   *Tournament
	Season       *Season
	Round        *Round
	Venue        *Venue
	Competitors  []Competitor
	Status       *EventStatus
	// StageType is set for stages, for example "race" or "practice".
	StageType   string
	ParentStage *urn.URN
	ChildStages []urn.URN
}

// SportID returns the id of the sport the event belongs to, taken from the
// event or its tournament.
func (s *SportEventSummary) SportID() urn.URN {
	if s.Sport != nil && !s.Sport.ID.IsZero() {
		return s.Sport.ID
	}
	if s.Tournament != nil {
		return s.Tournament.Sport.ID
	}
	return urn.URN{}
}

type ProductInfo struct {
	InLiveScore        bool
	InHostedStatistics bool
	InLiveCenterSoccer bool
	InLiveMatchTracker bool
	Streaming          []string
}

// Fixture is the most detailed description of a sport event.
type Fixture struct {
	SportEventSummary
	StartTime          time.Time
	StartTimeConfirmed bool
	NextLiveTime       time.Time
	References         map[string]string
	ExtraInfo          map[string]string
	ReplacedBy         urn.URN
	ProductInfo        *ProductInfo
}

// TournamentInfo describes a tournament or season.
type TournamentInfo struct {
	SportEventSummary
	Category      *Category
	CurrentSeason *Season
	Groups        []Group
}

type Group struct {
	ID          string
	Name        string
	Competitors []Competitor
}

type DrawResult struct {
	Value int
	Name  string
}

type Draw struct {
	ID        urn.URN
	LotteryID urn.URN
	Status    string
	DisplayID int
	Scheduled time.Time
	Results   []DrawResult
}

type DrawInfo struct {
	DrawType string
	TimeType string
	GameType string
}

type BonusInfo struct {
	BonusBalls int
	BonusDrum  string
	BonusRange string
}

type Lottery struct {
	ID             urn.URN
	Name           string
	Sport          Sport
	Category       Category
	DrawInfo       *DrawInfo
	BonusInfo      *BonusInfo
	ScheduledDraws []urn.URN
}

// ID returns the event id carried by a DTO, or false for values that are not
// DTOs.
func ID(v any) (urn.URN, bool) {
	switch d := v.(type) {
	case *SportEventSummary:
		return d.ID, true
	case *Fixture:
		return d.ID, true
	case *TournamentInfo:
		return d.ID, true
	case *Draw:
		return d.ID, true
	case *Lottery:
		return d.ID, true
	case *CompetitorProfile:
		return d.Competitor.ID, true
	}
	return urn.URN{}, false
}
