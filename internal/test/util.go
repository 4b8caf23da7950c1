package test

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/stretchr/testify/require"
)

var globalSeed atomic.Int64

// RandomURNs returns n distinct identifiers of the given type.
func RandomURNs(t testing.TB, typ string, n int) []urn.URN {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))

	seen := make(map[int64]struct{}, n)
	ids := make([]urn.URN, 0, n)
	for len(ids) < n {
		id := rng.Int63n(1<<40) + 1
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		u, err := urn.New("sr", typ, id)
		require.NoError(t, err)
		ids = append(ids, u)
	}
	return ids
}

// FixtureOptions describes the content of a generated fixture document.
type FixtureOptions struct {
	Name       string
	Scheduled  string
	SportID    string
	References map[string]string
	StageType  string
	Home, Away string
}

// FixtureXML returns a fixtures_fixture document for id.
func FixtureXML(id urn.URN, lang string, o FixtureOptions) string {
	if o.SportID == "" {
		o.SportID = "sr:sport:1"
	}
	if o.Scheduled == "" {
		o.Scheduled = "2024-05-01T18:00:00+00:00"
	}
	if o.Name == "" {
		o.Name = fmt.Sprintf("Event %d %s", id.ID, lang)
	}
	var typeAttr string
	if o.StageType != "" {
		typeAttr = fmt.Sprintf(` type=%q`, o.StageType)
	}
	var refs string
	for name, value := range o.References {
		refs += fmt.Sprintf(`<reference_id name=%q value=%q/>`, name, value)
	}
	if refs != "" {
		refs = "<reference_ids>" + refs + "</reference_ids>"
	}
	var competitors string
	if o.Home != "" {
		competitors = fmt.Sprintf(`<competitors>
      <competitor qualifier="home" id="sr:competitor:1001" name=%q abbreviation="HOM" country_code="DEU"/>
      <competitor qualifier="away" id="sr:competitor:1002" name=%q abbreviation="AWY" country_code="AUT"/>
    </competitors>`, o.Home, o.Away)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<fixtures_fixture xmlns="http://schemas.sportradar.com/sportsapi/v1/unified" generated_at="2024-04-30T10:00:00+00:00">
  <fixture id=%q name=%q scheduled=%q start_time_tbd="false" start_time_confirmed="true" liveodds="booked"%s>
    <tournament_round type="group" number="12" group_long_name="Bundesliga"/>
    <season id="sr:season:100" name="Season 23/24" start_date="2023-08-01" end_date="2024-06-01" year="23/24" tournament_id="sr:tournament:35"/>
    <tournament id="sr:tournament:35" name="Bundesliga">
      <sport id=%q name="Soccer"/>
      <category id="sr:category:30" name="Germany" country_code="DEU"/>
    </tournament>
    %s
    <venue id="sr:venue:574" name="Allianz Arena" capacity="75000" city_name="Munich" country_name="Germany" country_code="DEU" map_coordinates="48.2188,11.6247"/>
    <extra_info><info key="neutral_ground" value="false"/></extra_info>
    %s
  </fixture>
</fixtures_fixture>`, id.String(), o.Name, o.Scheduled, typeAttr, o.SportID, competitors, refs)
}

// MatchSummaryXML returns a match_summary document for id.
func MatchSummaryXML(id urn.URN, lang, sportID, status string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<match_summary xmlns="http://schemas.sportradar.com/sportsapi/v1/unified" generated_at="2024-04-30T10:00:00+00:00">
  <sport_event id=%q name=%q scheduled="2024-05-01T18:00:00+00:00" start_time_tbd="false">
    <tournament id="sr:tournament:35" name="Bundesliga">
      <sport id=%q name="Soccer"/>
      <category id="sr:category:30" name="Germany" country_code="DEU"/>
    </tournament>
    <competitors>
      <competitor qualifier="home" id="sr:competitor:1001" name="Home %s" abbreviation="HOM"/>
      <competitor qualifier="away" id="sr:competitor:1002" name="Away %s" abbreviation="AWY"/>
    </competitors>
  </sport_event>
  <sport_event_status status=%q match_status="0"/>
</match_summary>`, id.String(), fmt.Sprintf("Event %d %s", id.ID, lang), sportID, lang, lang, status)
}

// StageSummaryXML returns a stage_summary document for id. An empty
// stageType omits the attribute.
func StageSummaryXML(id urn.URN, lang, stageType string) string {
	var typeAttr string
	if stageType != "" {
		typeAttr = fmt.Sprintf(` type=%q`, stageType)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<stage_summary generated_at="2024-04-30T10:00:00+00:00">
  <sport_event id=%q name="Stage %s"%s scheduled="2024-05-01T12:00:00+00:00" scheduled_end="2024-05-01T14:00:00+00:00">
    <sport id="sr:sport:40" name="Formula 1"/>
    <category id="sr:category:36" name="Formula 1"/>
    <parent id="sr:stage:1000"/>
  </sport_event>
  <sport_event_status status="not_started"/>
</stage_summary>`, id.String(), lang, typeAttr)
}

// LotteryScheduleXML is the schedule of wns:lottery:1 with draws wns:draw:10
// and wns:draw:11.
const LotteryScheduleXML = `<lottery_schedule>
  <lottery id="wns:lottery:1" name="Lotto 6/49">
    <sport id="sr:sport:108" name="Numbers"/>
    <category id="sr:category:1" name="Lotto"/>
    <draw_info draw_type="drum" time_type="fixed" game_type="6/49"/>
    <bonus_info bonus_balls="1" bonus_drum="same" bonus_range="1-49"/>
  </lottery>
  <draw_events>
    <draw_event id="wns:draw:10"/>
    <draw_event id="wns:draw:11"/>
  </draw_events>
</lottery_schedule>`

// DrawSummaryXML is the finished draw wns:draw:10 of wns:lottery:1.
const DrawSummaryXML = `<draw_summary>
  <draw_fixture id="wns:draw:10" status="Finished" display_id="42" draw_date="2024-05-01T20:00:00+00:00">
    <lottery id="wns:lottery:1" name="Lotto 6/49"/>
  </draw_fixture>
  <draw_result><draws><draw value="7"/><draw value="13"/></draws></draw_result>
</draw_summary>`
