// Package restapi decodes the XML documents served by the REST API and maps
// them to DTOs.
package restapi

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/dto"
)

// Document is a decoded XML document that maps to a DTO of type D.
type Document[D any] interface {
	Map() (D, error)
}

// Decode decodes data into a document of type T and maps it to its DTO.
// Decoding failures are returned as *apierror.DeserializationError.
func Decode[T any, D any, PT interface {
	*T
	Document[D]
}](data []byte) (D, error) {
	var zero D
	doc := PT(new(T))
	if err := xml.Unmarshal(data, doc); err != nil {
		root, _ := RootElement(data)
		return zero, &apierror.DeserializationError{Root: root, Payload: data, Err: err}
	}
	return doc.Map()
}

func DecodeFixture(data []byte) (*dto.Fixture, error) {
	return Decode[FixturesFixture, *dto.Fixture](data)
}

func DecodeTournamentInfo(data []byte) (*dto.TournamentInfo, error) {
	return Decode[TournamentInfo, *dto.TournamentInfo](data)
}

func DecodeCompetitorProfile(data []byte) (*dto.CompetitorProfile, error) {
	return Decode[CompetitorProfile, *dto.CompetitorProfile](data)
}

func DecodeDrawSummary(data []byte) (*dto.Draw, error) {
	return Decode[DrawSummary, *dto.Draw](data)
}

func DecodeDrawFixture(data []byte) (*dto.Draw, error) {
	return Decode[DrawFixtures, *dto.Draw](data)
}

func DecodeLotterySchedule(data []byte) (*dto.Lottery, error) {
	return Decode[LotterySchedule, *dto.Lottery](data)
}

// DecodeSummary decodes the document returned by the summary endpoint, whose
// root element depends on the event type. Match and stage summaries map to
// *dto.SportEventSummary, tournament summaries to *dto.TournamentInfo.
func DecodeSummary(data []byte) (any, error) {
	root, err := RootElement(data)
	if err != nil {
		return nil, &apierror.DeserializationError{Payload: data, Err: err}
	}
	switch root {
	case "match_summary":
		return Decode[MatchSummary, *dto.SportEventSummary](data)
	case "stage_summary":
		return Decode[StageSummary, *dto.SportEventSummary](data)
	case "tournament_info":
		return Decode[TournamentInfo, *dto.TournamentInfo](data)
	case "fixtures_fixture":
		return DecodeFixture(data)
	}
	return nil, &apierror.DeserializationError{
		Root:    root,
		Payload: data,
		Err:     fmt.Errorf("unexpected summary document %q", root),
	}
}

// RootElement returns the local name of the first element in data.
func RootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no root element")
			}
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
