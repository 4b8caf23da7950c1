package restapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/urn"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func mapTime(property, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &apierror.MappingError{Property: property, Value: s, Target: "time.Time"}
}

func mapURN(property, s string) (urn.URN, error) {
	if s == "" {
		return urn.URN{}, nil
	}
	u, err := urn.Parse(s)
	if err != nil {
		return urn.URN{}, &apierror.MappingError{Property: property, Value: s, Target: "urn.URN", Err: err}
	}
	return u, nil
}

func mapInt(property, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &apierror.MappingError{Property: property, Value: s, Target: "int", Err: err}
	}
	return n, nil
}

func mapFloat(property, s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &apierror.MappingError{Property: property, Value: s, Target: "float64", Err: err}
	}
	return &f, nil
}

func mapBool(property, s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, &apierror.MappingError{Property: property, Value: s, Target: "bool", Err: err}
	}
	return &b, nil
}

// mapper collects the first error of a sequence of conversions.
type mapper struct {
	err error
}

func (m *mapper) urn(property, s string) urn.URN {
	u, err := mapURN(property, s)
	m.keep(err)
	return u
}

func (m *mapper) time(property, s string) time.Time {
	t, err := mapTime(property, s)
	m.keep(err)
	return t
}

func (m *mapper) int(property, s string) int {
	n, err := mapInt(property, s)
	m.keep(err)
	return n
}

func (m *mapper) float(property, s string) *float64 {
	f, err := mapFloat(property, s)
	m.keep(err)
	return f
}

func (m *mapper) bool(property, s string) *bool {
	b, err := mapBool(property, s)
	m.keep(err)
	return b
}

func (m *mapper) keep(err error) {
	if m.err == nil && err != nil {
		m.err = err
	}
}

func (m *mapper) sport(x *sportXML) *dto.Sport {
	if x == nil {
		return nil
	}
	return &dto.Sport{ID: m.urn("sport.id", x.ID), Name: x.Name}
}

func (m *mapper) category(x *categoryXML) *dto.Category {
	if x == nil {
		return nil
	}
	return &dto.Category{ID: m.urn("category.id", x.ID), Name: x.Name, CountryCode: x.CountryCode}
}

func (m *mapper) season(x *seasonXML) *dto.Season {
	if x == nil {
		return nil
	}
	return &dto.Season{
		ID:         m.urn("season.id", x.ID),
		Name:       x.Name,
		Year:       x.Year,
		StartDate:  m.time("season.start_date", x.StartDate),
		EndDate:    m.time("season.end_date", x.EndDate),
		Tournament: m.urn("season.tournament_id", x.TournamentID),
	}
}

func (m *mapper) tournament(x *tournamentXML) *dto.Tournament {
	if x == nil {
		return nil
	}
	t := &dto.Tournament{ID: m.urn("tournament.id", x.ID), Name: x.Name}
	if s := m.sport(x.Sport); s != nil {
		t.Sport = *s
	}
	if c := m.category(x.Category); c != nil {
		t.Category = *c
	}
	return t
}

func (m *mapper) round(x *roundXML) *dto.Round {
	if x == nil {
		return nil
	}
	group := x.Group
	if group == "" {
		group = x.GroupLongName
	}
	return &dto.Round{
		Type:      x.Type,
		Number:    m.int("tournament_round.number", x.Number),
		Name:      x.Name,
		GroupName: group,
		Phase:     x.Phase,
		CupRound:  x.CupRoundState,
	}
}

func (m *mapper) venue(x *venueXML) *dto.Venue {
	if x == nil {
		return nil
	}
	return &dto.Venue{
		ID:          m.urn("venue.id", x.ID),
		Name:        x.Name,
		Capacity:    m.int("venue.capacity", x.Capacity),
		CityName:    x.CityName,
		CountryName: x.CountryName,
		CountryCode: x.CountryCode,
		Coordinates: x.MapCoordinates,
	}
}

func references(x *referenceIDsXML) map[string]string {
	if x == nil || len(x.References) == 0 {
		return nil
	}
	refs := make(map[string]string, len(x.References))
	for _, r := range x.References {
		refs[r.Name] = r.Value
	}
	return refs
}

func (m *mapper) competitor(x competitorXML) dto.Competitor {
	virtual := m.bool("competitor.virtual", x.Virtual)
	return dto.Competitor{
		ID:           m.urn("competitor.id", x.ID),
		Name:         x.Name,
		Abbreviation: x.Abbreviation,
		Country:      x.Country,
		CountryCode:  x.CountryCode,
		Gender:       x.Gender,
		Qualifier:    x.Qualifier,
		IsVirtual:    virtual != nil && *virtual,
		References:   references(x.ReferenceIDs),
	}
}

func (m *mapper) competitors(xs []competitorXML) []dto.Competitor {
	if len(xs) == 0 {
		return nil
	}
	out := make([]dto.Competitor, len(xs))
	for i := range xs {
		out[i] = m.competitor(xs[i])
	}
	return out
}

func (m *mapper) status(x *sportEventStatusXML) *dto.EventStatus {
	if x == nil {
		return nil
	}
	return &dto.EventStatus{
		Status:      x.Status,
		MatchStatus: m.int("sport_event_status.match_status", x.MatchStatus),
		HomeScore:   m.float("sport_event_status.home_score", x.HomeScore),
		AwayScore:   m.float("sport_event_status.away_score", x.AwayScore),
		WinnerID:    m.urn("sport_event_status.winner_id", x.WinnerID),
	}
}

func (m *mapper) sportEvent(x *sportEventXML) dto.SportEventSummary {
	s := dto.SportEventSummary{
		ID:           m.urn("sport_event.id", x.ID),
		Name:         x.Name,
		Type:         x.Type,
		Scheduled:    m.time("sport_event.scheduled", x.Scheduled),
		ScheduledEnd: m.time("sport_event.scheduled_end", x.ScheduledEnd),
		StartTimeTBD: m.bool("sport_event.start_time_tbd", x.StartTimeTBD),
		LiveOdds:     x.LiveOdds,
		Sport:        m.sport(x.Sport),
		Tournament:   m.tournament(x.Tournament),
		Season:       m.season(x.Season),
		Round:        m.round(x.Round),
		Venue:        m.venue(x.Venue),
		Competitors:  m.competitors(x.Competitors),
	}
	if s.ID.TypeGroup() == urn.Stage {
		s.StageType = x.StageType
		if s.StageType == "" {
			s.StageType = x.Type
		}
		if x.Parent != nil {
			parent := m.urn("sport_event.parent.id", x.Parent.ID)
			if !parent.IsZero() {
				s.ParentStage = &parent
			}
		}
		for i := range x.Stages {
			s.ChildStages = append(s.ChildStages, m.urn("sport_event.stages.id", x.Stages[i].ID))
		}
	}
	if s.Sport == nil && s.Tournament == nil && x.Category != nil {
		// Stages carry sport and category directly.
		s.Tournament = &dto.Tournament{Category: *m.category(x.Category)}
	}
	if x.Status != "" {
		s.Status = &dto.EventStatus{Status: x.Status}
	}
	return s
}

// Map converts the document to a Fixture.
func (d *FixturesFixture) Map() (*dto.Fixture, error) {
	var m mapper
	x := &d.Fixture
	f := &dto.Fixture{
		SportEventSummary: m.sportEvent(&x.sportEventXML),
		StartTime:          m.time("fixture.start_time", x.StartTime),
		NextLiveTime:       m.time("fixture.next_live_time", x.NextLiveTime),
		ReplacedBy:         m.urn("fixture.replaced_by", x.ReplacedBy),
		References:         references(x.ReferenceIDs),
	}
	if confirmed := m.bool("fixture.start_time_confirmed", x.StartTimeConfirmed); confirmed != nil {
		f.StartTimeConfirmed = *confirmed
	}
	if len(x.ExtraInfo) != 0 {
		f.ExtraInfo = make(map[string]string, len(x.ExtraInfo))
		for _, info := range x.ExtraInfo {
			f.ExtraInfo[info.Key] = info.Value
		}
	}
	if pi := x.ProductInfo; pi != nil {
		f.ProductInfo = &dto.ProductInfo{
			InLiveScore:        pi.InLiveScore != nil,
			InHostedStatistics: pi.InHostedStatistics != nil,
			InLiveCenterSoccer: pi.InLiveCenterSoccer != nil,
			InLiveMatchTracker: pi.InLiveMatchTracker != nil,
		}
		for _, s := range pi.Streams {
			f.ProductInfo.Streaming = append(f.ProductInfo.Streaming, s.URL)
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return f, nil
}

// Map converts the document to a SportEventSummary.
func (d *MatchSummary) Map() (*dto.SportEventSummary, error) {
	var m mapper
	s := m.sportEvent(&d.SportEvent)
	if st := m.status(d.Status); st != nil {
		s.Status = st
	}
	if m.err != nil {
		return nil, m.err
	}
	return &s, nil
}

// Map converts the document to a SportEventSummary.
func (d *StageSummary) Map() (*dto.SportEventSummary, error) {
	var m mapper
	s := m.sportEvent(&d.SportEvent)
	if st := m.status(d.Status); st != nil {
		s.Status = st
	}
	if m.err != nil {
		return nil, m.err
	}
	return &s, nil
}

// Map converts the document to a TournamentInfo.
func (d *TournamentInfo) Map() (*dto.TournamentInfo, error) {
	var m mapper
	t := m.tournament(&d.Tournament)
	info := &dto.TournamentInfo{
		SportEventSummary: dto.SportEventSummary{
			ID:          t.ID,
			Name:        t.Name,
			Sport:       m.sport(d.Tournament.Sport),
			Tournament:  t,
			Season:      m.season(d.Season),
			Round:       m.round(d.Round),
			Competitors: m.competitors(d.Competitors),
		},
		Category:      m.category(d.Tournament.Category),
		CurrentSeason: m.season(d.Tournament.CurrentSeason),
	}
	for _, g := range d.Groups {
		info.Groups = append(info.Groups, dto.Group{
			ID:          g.ID,
			Name:        g.Name,
			Competitors: m.competitors(g.Competitors),
		})
	}
	if m.err != nil {
		return nil, m.err
	}
	return info, nil
}

// Map converts the document to a CompetitorProfile.
func (d *CompetitorProfile) Map() (*dto.CompetitorProfile, error) {
	var m mapper
	p := &dto.CompetitorProfile{
		Competitor: m.competitor(d.Competitor),
		Venue:      m.venue(d.Venue),
	}
	for _, x := range d.Players {
		p.Players = append(p.Players, dto.Player{
			ID:           m.urn("player.id", x.ID),
			Name:         x.Name,
			Type:         x.Type,
			JerseyNumber: m.int("player.jersey_number", x.JerseyNumber),
		})
	}
	if m.err != nil {
		return nil, m.err
	}
	return p, nil
}

func (m *mapper) drawFixture(x *drawFixtureXML) *dto.Draw {
	d := &dto.Draw{
		ID:        m.urn("draw_fixture.id", x.ID),
		Status:    strings.ToLower(x.Status),
		DisplayID: m.int("draw_fixture.display_id", x.DisplayID),
		Scheduled: m.time("draw_fixture.draw_date", x.DrawDate),
	}
	if x.Lottery != nil {
		d.LotteryID = m.urn("draw_fixture.lottery.id", x.Lottery.ID)
	}
	return d
}

// Map converts the document to a Draw.
func (d *DrawSummary) Map() (*dto.Draw, error) {
	var m mapper
	draw := m.drawFixture(&d.DrawFixture)
	for _, r := range d.Results {
		draw.Results = append(draw.Results, dto.DrawResult{
			Value: m.int("draw.value", r.Value),
			Name:  r.Name,
		})
	}
	if m.err != nil {
		return nil, m.err
	}
	return draw, nil
}

// Map converts the document to a Draw.
func (d *DrawFixtures) Map() (*dto.Draw, error) {
	var m mapper
	draw := m.drawFixture(&d.DrawFixture)
	if m.err != nil {
		return nil, m.err
	}
	return draw, nil
}

// Map converts the document to a Lottery.
func (d *LotterySchedule) Map() (*dto.Lottery, error) {
	var m mapper
	x := &d.Lottery
	l := &dto.Lottery{
		ID:   m.urn("lottery.id", x.ID),
		Name: x.Name,
	}
	if s := m.sport(x.Sport); s != nil {
		l.Sport = *s
	}
	if c := m.category(x.Category); c != nil {
		l.Category = *c
	}
	if x.DrawInfo != nil {
		l.DrawInfo = &dto.DrawInfo{
			DrawType: x.DrawInfo.DrawType,
			TimeType: x.DrawInfo.TimeType,
			GameType: x.DrawInfo.GameType,
		}
	}
	if x.BonusInfo != nil {
		l.BonusInfo = &dto.BonusInfo{
			BonusBalls: m.int("bonus_info.bonus_balls", x.BonusInfo.BonusBalls),
			BonusDrum:  x.BonusInfo.BonusDrum,
			BonusRange: x.BonusInfo.BonusRange,
		}
	}
	for _, ev := range d.DrawEvents {
		l.ScheduledDraws = append(l.ScheduledDraws, m.urn("draw_event.id", ev.ID))
	}
	if m.err != nil {
		return nil, m.err
	}
	return l, nil
}
