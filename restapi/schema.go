package restapi

import "encoding/xml"

type sportXML struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type categoryXML struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:"name,attr"`
	CountryCode string `xml:"country_code,attr"`
}

type seasonXML struct {
	ID           string `xml:"id,attr"`
	Name         string `xml:"name,attr"`
	Year         string `xml:"year,attr"`
	StartDate    string `xml:"start_date,attr"`
	EndDate      string `xml:"end_date,attr"`
	TournamentID string `xml:"tournament_id,attr"`
}

type tournamentXML struct {
	ID            string       `xml:"id,attr"`
	Name          string       `xml:"name,attr"`
	Sport         *sportXML    `xml:"sport"`
	Category      *categoryXML `xml:"category"`
	CurrentSeason *seasonXML   `xml:"current_season"`
}

type roundXML struct {
	Type          string `xml:"type,attr"`
	Number        string `xml:"number,attr"`
	Name          string `xml:"name,attr"`
	GroupLongName string `xml:"group_long_name,attr"`
	Group         string `xml:"group,attr"`
	Phase         string `xml:"phase,attr"`
	CupRoundState string `xml:"cup_round_match_number,attr"`
}

type venueXML struct {
	ID             string `xml:"id,attr"`
	Name           string `xml:"name,attr"`
	Capacity       string `xml:"capacity,attr"`
	CityName       string `xml:"city_name,attr"`
	CountryName    string `xml:"country_name,attr"`
	CountryCode    string `xml:"country_code,attr"`
	MapCoordinates string `xml:"map_coordinates,attr"`
}

type referenceXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type referenceIDsXML struct {
	References []referenceXML `xml:"reference_id"`
}

type competitorXML struct {
	ID           string           `xml:"id,attr"`
	Name         string           `xml:"name,attr"`
	Abbreviation string           `xml:"abbreviation,attr"`
	Country      string           `xml:"country,attr"`
	CountryCode  string           `xml:"country_code,attr"`
	Gender       string           `xml:"gender,attr"`
	Qualifier    string           `xml:"qualifier,attr"`
	Virtual      string           `xml:"virtual,attr"`
	ReferenceIDs *referenceIDsXML `xml:"reference_ids"`
}

type sportEventStatusXML struct {
	Status      string `xml:"status,attr"`
	MatchStatus string `xml:"match_status,attr"`
	HomeScore   string `xml:"home_score,attr"`
	AwayScore   string `xml:"away_score,attr"`
	WinnerID    string `xml:"winner_id,attr"`
}

type parentStageXML struct {
	ID string `xml:"id,attr"`
}

type sportEventXML struct {
	ID           string          `xml:"id,attr"`
	Name         string          `xml:"name,attr"`
	Type         string          `xml:"type,attr"`
	StageType    string          `xml:"stage_type,attr"`
	Scheduled    string          `xml:"scheduled,attr"`
	ScheduledEnd string          `xml:"scheduled_end,attr"`
	StartTimeTBD string          `xml:"start_time_tbd,attr"`
	LiveOdds     string          `xml:"liveodds,attr"`
	Status       string          `xml:"status,attr"`
	Round        *roundXML       `xml:"tournament_round"`
	Season       *seasonXML      `xml:"season"`
	Tournament   *tournamentXML  `xml:"tournament"`
	Sport        *sportXML       `xml:"sport"`
	Category     *categoryXML    `xml:"category"`
	Competitors  []competitorXML `xml:"competitors>competitor"`
	Venue        *venueXML       `xml:"venue"`
	Parent       *parentStageXML `xml:"parent"`
	Stages       []sportEventXML `xml:"stages>sport_event"`
}

type infoXML struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

type streamXML struct {
	Name string `xml:"name,attr"`
	URL  string `xml:"url,attr"`
}

type productInfoXML struct {
	InLiveScore        *struct{}   `xml:"is_in_live_score"`
	InHostedStatistics *struct{}   `xml:"is_in_hosted_statistics"`
	InLiveCenterSoccer *struct{}   `xml:"is_in_live_center_soccer"`
	InLiveMatchTracker *struct{}   `xml:"is_in_live_match_tracker"`
	Streams            []streamXML `xml:"streaming>stream_url"`
}

type fixtureXML struct {
	sportEventXML
	StartTime          string           `xml:"start_time,attr"`
	StartTimeConfirmed string           `xml:"start_time_confirmed,attr"`
	NextLiveTime       string           `xml:"next_live_time,attr"`
	ReplacedBy         string           `xml:"replaced_by,attr"`
	ExtraInfo          []infoXML        `xml:"extra_info>info"`
	ReferenceIDs       *referenceIDsXML `xml:"reference_ids"`
	ProductInfo        *productInfoXML  `xml:"product_info"`
}

// FixturesFixture is the fixtures_fixture document.
type FixturesFixture struct {
	XMLName     xml.Name   `xml:"fixtures_fixture"`
	GeneratedAt string     `xml:"generated_at,attr"`
	Fixture     fixtureXML `xml:"fixture"`
}

// MatchSummary is the match_summary document.
type MatchSummary struct {
	XMLName     xml.Name             `xml:"match_summary"`
	GeneratedAt string               `xml:"generated_at,attr"`
	SportEvent  sportEventXML        `xml:"sport_event"`
	Status      *sportEventStatusXML `xml:"sport_event_status"`
}

// StageSummary is the stage_summary document.
type StageSummary struct {
	XMLName     xml.Name             `xml:"stage_summary"`
	GeneratedAt string               `xml:"generated_at,attr"`
	SportEvent  sportEventXML        `xml:"sport_event"`
	Status      *sportEventStatusXML `xml:"sport_event_status"`
}

type groupXML struct {
	ID          string          `xml:"id,attr"`
	Name        string          `xml:"name,attr"`
	Competitors []competitorXML `xml:"competitor"`
}

// TournamentInfo is the tournament_info document.
type TournamentInfo struct {
	XMLName     xml.Name        `xml:"tournament_info"`
	GeneratedAt string          `xml:"generated_at,attr"`
	Tournament  tournamentXML   `xml:"tournament"`
	Season      *seasonXML      `xml:"season"`
	Round       *roundXML       `xml:"round"`
	Competitors []competitorXML `xml:"competitors>competitor"`
	Groups      []groupXML      `xml:"groups>group"`
}

type playerXML struct {
	ID           string `xml:"id,attr"`
	Name         string `xml:"name,attr"`
	Type         string `xml:"type,attr"`
	JerseyNumber string `xml:"jersey_number,attr"`
}

// CompetitorProfile is the competitor_profile document.
type CompetitorProfile struct {
	XMLName     xml.Name      `xml:"competitor_profile"`
	GeneratedAt string        `xml:"generated_at,attr"`
	Competitor  competitorXML `xml:"competitor"`
	Venue       *venueXML     `xml:"venue"`
	Players     []playerXML   `xml:"players>player"`
}

type lotteryRefXML struct {
	ID       string       `xml:"id,attr"`
	Name     string       `xml:"name,attr"`
	Sport    *sportXML    `xml:"sport"`
	Category *categoryXML `xml:"category"`
}

type drawFixtureXML struct {
	ID        string         `xml:"id,attr"`
	Status    string         `xml:"status,attr"`
	DisplayID string         `xml:"display_id,attr"`
	DrawDate  string         `xml:"draw_date,attr"`
	Lottery   *lotteryRefXML `xml:"lottery"`
}

type drawResultXML struct {
	Value string `xml:"value,attr"`
	Name  string `xml:"name,attr"`
}

// DrawSummary is the draw_summary document.
type DrawSummary struct {
	XMLName     xml.Name        `xml:"draw_summary"`
	DrawFixture drawFixtureXML  `xml:"draw_fixture"`
	Results     []drawResultXML `xml:"draw_result>draws>draw"`
}

// DrawFixtures is the draw_fixtures document.
type DrawFixtures struct {
	XMLName     xml.Name       `xml:"draw_fixtures"`
	DrawFixture drawFixtureXML `xml:"draw_fixture"`
}

type drawInfoXML struct {
	DrawType string `xml:"draw_type,attr"`
	TimeType string `xml:"time_type,attr"`
	GameType string `xml:"game_type,attr"`
}

type bonusInfoXML struct {
	BonusBalls string `xml:"bonus_balls,attr"`
	BonusDrum  string `xml:"bonus_drum,attr"`
	BonusRange string `xml:"bonus_range,attr"`
}

type lotteryXML struct {
	lotteryRefXML
	DrawInfo  *drawInfoXML  `xml:"draw_info"`
	BonusInfo *bonusInfoXML `xml:"bonus_info"`
}

type drawEventXML struct {
	ID string `xml:"id,attr"`
}

// LotterySchedule is the lottery_schedule document.
type LotterySchedule struct {
	XMLName    xml.Name       `xml:"lottery_schedule"`
	Lottery    lotteryXML     `xml:"lottery"`
	DrawEvents []drawEventXML `xml:"draw_events>draw_event"`
}
