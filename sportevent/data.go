package sportevent

import (
	"maps"
	"slices"
	"time"

	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/urn"
)

// Localized holds a text per language.
type Localized map[string]string

func (l Localized) with(lang, value string) Localized {
	if value == "" {
		return l
	}
	if l == nil {
		l = make(Localized)
	}
	l[lang] = value
	return l
}

type CategoryData struct {
	ID          urn.URN   `json:"id"`
	Names       Localized `json:"names,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
}

type TournamentData struct {
	ID       urn.URN       `json:"id"`
	Names    Localized     `json:"names,omitempty"`
	SportID  urn.URN       `json:"sport_id"`
	Category *CategoryData `json:"category,omitempty"`
}

type SeasonData struct {
	ID           urn.URN   `json:"id"`
	Names        Localized `json:"names,omitempty"`
	Year         string    `json:"year,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	TournamentID urn.URN   `json:"tournament_id"`
}

type RoundData struct {
	Type      string    `json:"type,omitempty"`
	Number    int       `json:"number,omitempty"`
	Names     Localized `json:"names,omitempty"`
	GroupName string    `json:"group_name,omitempty"`
	Phase     string    `json:"phase,omitempty"`
	CupRound  string    `json:"cup_round,omitempty"`
}

type VenueData struct {
	ID          urn.URN   `json:"id"`
	Names       Localized `json:"names,omitempty"`
	Cities      Localized `json:"cities,omitempty"`
	Countries   Localized `json:"countries,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	Capacity    int       `json:"capacity,omitempty"`
	Coordinates string    `json:"coordinates,omitempty"`
}

type CompetitorData struct {
	ID           urn.URN           `json:"id"`
	Names        Localized         `json:"names,omitempty"`
	Countries    Localized         `json:"countries,omitempty"`
	Abbreviation string            `json:"abbreviation,omitempty"`
	CountryCode  string            `json:"country_code,omitempty"`
	Gender       string            `json:"gender,omitempty"`
	Qualifier    string            `json:"qualifier,omitempty"`
	IsVirtual    bool              `json:"is_virtual,omitempty"`
	References   map[string]string `json:"references,omitempty"`
}

type StatusData struct {
	Status      string   `json:"status"`
	MatchStatus int      `json:"match_status,omitempty"`
	HomeScore   *float64 `json:"home_score,omitempty"`
	AwayScore   *float64 `json:"away_score,omitempty"`
	WinnerID    urn.URN  `json:"winner_id"`
}

type FixtureData struct {
	StartTime          time.Time         `json:"start_time"`
	StartTimeConfirmed bool              `json:"start_time_confirmed,omitempty"`
	NextLiveTime       time.Time         `json:"next_live_time"`
	References         map[string]string `json:"references,omitempty"`
	ExtraInfo          map[string]string `json:"extra_info,omitempty"`
	ReplacedBy         urn.URN           `json:"replaced_by"`
	ProductInfo        *dto.ProductInfo  `json:"product_info,omitempty"`
}

// EventData is the state of a match, stage, tournament or other sport event.
type EventData struct {
	Names         Localized        `json:"names,omitempty"`
	SportID       urn.URN          `json:"sport_id"`
	Scheduled     time.Time        `json:"scheduled"`
	ScheduledEnd  time.Time        `json:"scheduled_end"`
	StartTimeTBD  *bool            `json:"start_time_tbd,omitempty"`
	LiveOdds      string           `json:"live_odds,omitempty"`
	Tournament    *TournamentData  `json:"tournament,omitempty"`
	Season        *SeasonData      `json:"season,omitempty"`
	Round         *RoundData       `json:"round,omitempty"`
	Venue         *VenueData       `json:"venue,omitempty"`
	Competitors   []CompetitorData `json:"competitors,omitempty"`
	Status        *StatusData      `json:"status,omitempty"`
	Fixture       *FixtureData     `json:"fixture,omitempty"`
	StageType     string           `json:"stage_type,omitempty"`
	ParentStage   urn.URN          `json:"parent_stage"`
	ChildStages   []urn.URN        `json:"child_stages,omitempty"`
	Category      *CategoryData    `json:"category,omitempty"`
	CurrentSeason *SeasonData      `json:"current_season,omitempty"`
}

// DrawData is the state of a lottery draw.
type DrawData struct {
	LotteryID urn.URN          `json:"lottery_id"`
	SportID   urn.URN          `json:"sport_id"`
	Status    string           `json:"status,omitempty"`
	DisplayID int              `json:"display_id,omitempty"`
	Scheduled time.Time        `json:"scheduled"`
	Results   []dto.DrawResult `json:"results,omitempty"`
}

// LotteryData is the state of a lottery.
type LotteryData struct {
	Names          Localized      `json:"names,omitempty"`
	SportID        urn.URN        `json:"sport_id"`
	Category       *CategoryData  `json:"category,omitempty"`
	DrawInfo       *dto.DrawInfo  `json:"draw_info,omitempty"`
	BonusInfo      *dto.BonusInfo `json:"bonus_info,omitempty"`
	ScheduledDraws []urn.URN      `json:"scheduled_draws,omitempty"`
}

// clonePtr copies a struct without reference fields.
func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func (c *CategoryData) clone() *CategoryData {
	if c == nil {
		return nil
	}
	out := *c
	out.Names = maps.Clone(c.Names)
	return &out
}

func (t *TournamentData) clone() *TournamentData {
	if t == nil {
		return nil
	}
	out := *t
	out.Names = maps.Clone(t.Names)
	out.Category = t.Category.clone()
	return &out
}

func (s *SeasonData) clone() *SeasonData {
	if s == nil {
		return nil
	}
	out := *s
	out.Names = maps.Clone(s.Names)
	return &out
}

func (r *RoundData) clone() *RoundData {
	if r == nil {
		return nil
	}
	out := *r
	out.Names = maps.Clone(r.Names)
	return &out
}

func (v *VenueData) clone() *VenueData {
	if v == nil {
		return nil
	}
	out := *v
	out.Names = maps.Clone(v.Names)
	out.Cities = maps.Clone(v.Cities)
	out.Countries = maps.Clone(v.Countries)
	return &out
}

func cloneCompetitors(cs []CompetitorData) []CompetitorData {
	if cs == nil {
		return nil
	}
	out := make([]CompetitorData, len(cs))
	for i, c := range cs {
		c.Names = maps.Clone(c.Names)
		c.Countries = maps.Clone(c.Countries)
		c.References = maps.Clone(c.References)
		out[i] = c
	}
	return out
}

func (s *StatusData) clone() *StatusData {
	if s == nil {
		return nil
	}
	out := *s
	out.HomeScore = clonePtr(s.HomeScore)
	out.AwayScore = clonePtr(s.AwayScore)
	return &out
}

func (f *FixtureData) clone() *FixtureData {
	if f == nil {
		return nil
	}
	out := *f
	out.References = maps.Clone(f.References)
	out.ExtraInfo = maps.Clone(f.ExtraInfo)
	if f.ProductInfo != nil {
		pi := *f.ProductInfo
		pi.Streaming = slices.Clone(f.ProductInfo.Streaming)
		out.ProductInfo = &pi
	}
	return &out
}

func (d *EventData) clone() *EventData {
	if d == nil {
		return nil
	}
	out := *d
	out.Names = maps.Clone(d.Names)
	out.StartTimeTBD = clonePtr(d.StartTimeTBD)
	out.Tournament = d.Tournament.clone()
	out.Season = d.Season.clone()
	out.Round = d.Round.clone()
	out.Venue = d.Venue.clone()
	out.Competitors = cloneCompetitors(d.Competitors)
	out.Status = d.Status.clone()
	out.Fixture = d.Fixture.clone()
	out.ChildStages = slices.Clone(d.ChildStages)
	out.Category = d.Category.clone()
	out.CurrentSeason = d.CurrentSeason.clone()
	return &out
}

func (d *DrawData) clone() *DrawData {
	if d == nil {
		return nil
	}
	out := *d
	out.Results = slices.Clone(d.Results)
	return &out
}

func (l *LotteryData) clone() *LotteryData {
	if l == nil {
		return nil
	}
	out := *l
	out.Names = maps.Clone(l.Names)
	out.Category = l.Category.clone()
	out.DrawInfo = clonePtr(l.DrawInfo)
	out.BonusInfo = clonePtr(l.BonusInfo)
	out.ScheduledDraws = slices.Clone(l.ScheduledDraws)
	return &out
}

func mergeCategory(c *CategoryData, x *dto.Category, lang string) *CategoryData {
	if x == nil || x.ID.IsZero() {
		return c
	}
	if c == nil || c.ID != x.ID {
		c = &CategoryData{ID: x.ID}
	}
	c.Names = c.Names.with(lang, x.Name)
	if x.CountryCode != "" {
		c.CountryCode = x.CountryCode
	}
	return c
}

func mergeTournament(t *TournamentData, x *dto.Tournament, lang string) *TournamentData {
	if x == nil {
		return t
	}
	if t == nil {
		t = &TournamentData{}
	}
	if !x.ID.IsZero() {
		if t.ID != x.ID {
			t = &TournamentData{ID: x.ID, SportID: t.SportID, Category: t.Category}
		}
		t.Names = t.Names.with(lang, x.Name)
	}
	if !x.Sport.ID.IsZero() {
		t.SportID = x.Sport.ID
	}
	t.Category = mergeCategory(t.Category, &x.Category, lang)
	return t
}

func mergeSeason(s *SeasonData, x *dto.Season, lang string) *SeasonData {
	if x == nil || x.ID.IsZero() {
		return s
	}
	if s == nil || s.ID != x.ID {
		s = &SeasonData{ID: x.ID}
	}
	s.Names = s.Names.with(lang, x.Name)
	if x.Year != "" {
		s.Year = x.Year
	}
	if !x.StartDate.IsZero() {
		s.StartDate = x.StartDate
	}
	if !x.EndDate.IsZero() {
		s.EndDate = x.EndDate
	}
	if !x.Tournament.IsZero() {
		s.TournamentID = x.Tournament
	}
	return s
}

func mergeRound(r *RoundData, x *dto.Round, lang string) *RoundData {
	if x == nil {
		return r
	}
	if r == nil {
		r = &RoundData{}
	}
	if x.Type != "" {
		r.Type = x.Type
	}
	if x.Number != 0 {
		r.Number = x.Number
	}
	r.Names = r.Names.with(lang, x.Name)
	if x.GroupName != "" {
		r.GroupName = x.GroupName
	}
	if x.Phase != "" {
		r.Phase = x.Phase
	}
	if x.CupRound != "" {
		r.CupRound = x.CupRound
	}
	return r
}

func mergeVenue(v *VenueData, x *dto.Venue, lang string) *VenueData {
	if x == nil || x.ID.IsZero() {
		return v
	}
	if v == nil || v.ID != x.ID {
		v = &VenueData{ID: x.ID}
	}
	v.Names = v.Names.with(lang, x.Name)
	v.Cities = v.Cities.with(lang, x.CityName)
	v.Countries = v.Countries.with(lang, x.CountryName)
	if x.CountryCode != "" {
		v.CountryCode = x.CountryCode
	}
	if x.Capacity != 0 {
		v.Capacity = x.Capacity
	}
	if x.Coordinates != "" {
		v.Coordinates = x.Coordinates
	}
	return v
}

func mergeReferences(refs, add map[string]string) map[string]string {
	if len(add) == 0 {
		return refs
	}
	if refs == nil {
		refs = make(map[string]string, len(add))
	}
	for k, v := range add {
		refs[k] = v
	}
	return refs
}

// mergeCompetitors takes the membership and order of xs, keeping the
// localized values previously known for each competitor. An empty xs keeps
// the current competitors.
func mergeCompetitors(cs []CompetitorData, xs []dto.Competitor, lang string) []CompetitorData {
	if len(xs) == 0 {
		return cs
	}
	prev := make(map[urn.URN]CompetitorData, len(cs))
	for _, c := range cs {
		prev[c.ID] = c
	}
	out := make([]CompetitorData, len(xs))
	for i, x := range xs {
		c, ok := prev[x.ID]
		if !ok {
			c = CompetitorData{ID: x.ID}
		}
		c.Names = c.Names.with(lang, x.Name)
		c.Countries = c.Countries.with(lang, x.Country)
		if x.Abbreviation != "" {
			c.Abbreviation = x.Abbreviation
		}
		if x.CountryCode != "" {
			c.CountryCode = x.CountryCode
		}
		if x.Gender != "" {
			c.Gender = x.Gender
		}
		if x.Qualifier != "" {
			c.Qualifier = x.Qualifier
		}
		c.IsVirtual = c.IsVirtual || x.IsVirtual
		c.References = mergeReferences(c.References, x.References)
		out[i] = c
	}
	return out
}

func mapStatus(x *dto.EventStatus) *StatusData {
	return &StatusData{
		Status:      x.Status,
		MatchStatus: x.MatchStatus,
		HomeScore:   clonePtr(x.HomeScore),
		AwayScore:   clonePtr(x.AwayScore),
		WinnerID:    x.WinnerID,
	}
}

// mergeSummary merges the fields present in x. Fields x does not carry keep
// their current value.
func (d *EventData) mergeSummary(x *dto.SportEventSummary, lang string) {
	d.Names = d.Names.with(lang, x.Name)
	if sportID := x.SportID(); !sportID.IsZero() {
		d.SportID = sportID
	}
	if !x.Scheduled.IsZero() {
		d.Scheduled = x.Scheduled
	}
	if !x.ScheduledEnd.IsZero() {
		d.ScheduledEnd = x.ScheduledEnd
	}
	if x.StartTimeTBD != nil {
		tbd := *x.StartTimeTBD
		d.StartTimeTBD = &tbd
	}
	if x.LiveOdds != "" {
		d.LiveOdds = x.LiveOdds
	}
	d.Tournament = mergeTournament(d.Tournament, x.Tournament, lang)
	if d.SportID.IsZero() && d.Tournament != nil {
		d.SportID = d.Tournament.SportID
	}
	d.Season = mergeSeason(d.Season, x.Season, lang)
	d.Round = mergeRound(d.Round, x.Round, lang)
	d.Venue = mergeVenue(d.Venue, x.Venue, lang)
	d.Competitors = mergeCompetitors(d.Competitors, x.Competitors, lang)
	if x.Status != nil && x.Status.Status != "" {
		d.Status = mapStatus(x.Status)
	}
	if x.StageType != "" {
		d.StageType = x.StageType
	}
	if x.ParentStage != nil && !x.ParentStage.IsZero() {
		d.ParentStage = *x.ParentStage
	}
	if len(x.ChildStages) != 0 {
		d.ChildStages = append([]urn.URN(nil), x.ChildStages...)
	}
}

func (d *EventData) mergeFixture(x *dto.Fixture, lang string) {
	d.mergeSummary(&x.SportEventSummary, lang)
	f := d.Fixture
	if f == nil {
		f = &FixtureData{}
		d.Fixture = f
	}
	if !x.StartTime.IsZero() {
		f.StartTime = x.StartTime
	}
	f.StartTimeConfirmed = x.StartTimeConfirmed
	if !x.NextLiveTime.IsZero() {
		f.NextLiveTime = x.NextLiveTime
	}
	f.References = mergeReferences(f.References, x.References)
	f.ExtraInfo = mergeReferences(f.ExtraInfo, x.ExtraInfo)
	if !x.ReplacedBy.IsZero() {
		f.ReplacedBy = x.ReplacedBy
	}
	if x.ProductInfo != nil {
		pi := *x.ProductInfo
		pi.Streaming = append([]string(nil), x.ProductInfo.Streaming...)
		f.ProductInfo = &pi
	}
}

func (d *EventData) mergeTournamentInfo(x *dto.TournamentInfo, lang string) {
	d.mergeSummary(&x.SportEventSummary, lang)
	d.Category = mergeCategory(d.Category, x.Category, lang)
	d.CurrentSeason = mergeSeason(d.CurrentSeason, x.CurrentSeason, lang)
}
