// Package router routes requests for sport event data to the REST API.
//
// Each request runs on one of two execution paths. The critical path serves
// direct application requests: it uses a long timeout, retries transient
// failures and returns every error. The non-critical path serves background
// prefetching: it uses a short timeout and logs failures, returning a nil
// result so that the data is fetched again on next access.
//
// Every successful fetch is published as RawAPIData and handed to the cache
// manager so that other caches interested in the same document do not need to
// fetch it again.
package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/dataprovider"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/internal/eventbus"
	"github.com/oddsfeed/go-uofsdk/metrics"
	"github.com/oddsfeed/go-uofsdk/restapi"
	"github.com/oddsfeed/go-uofsdk/urn"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var log = logging.Logger("router")

var ErrClosed = errors.New("data router closed")

const (
	summaryPath         = "/sports/%s/sport_events/%s/summary.xml"
	fixturePath         = "/sports/%s/sport_events/%s/fixture.xml"
	fixtureChangePath   = "/sports/%s/sport_events/%s/fixture_change_fixture.xml"
	tournamentInfoPath  = "/sports/%s/tournaments/%s/info.xml"
	competitorPath      = "/sports/%s/competitors/%s/profile.xml"
	drawSummaryPath     = "/wns/%s/sport_events/%s/summary.xml"
	drawFixturePath     = "/wns/%s/sport_events/%s/fixture.xml"
	lotterySchedulePath = "/wns/%s/lotteries/%s/schedule.xml"
)

// ExecutionPath selects how a request is executed and how its failures are
// reported.
type ExecutionPath int

const (
	Critical ExecutionPath = iota
	NonCritical
)

func (p ExecutionPath) String() string {
	if p == NonCritical {
		return "non_critical"
	}
	return "critical"
}

// Request describes who is asking and on which path.
type Request struct {
	Path ExecutionPath
	// Requester is the name of the cache making the request. That cache is
	// skipped when the fetched DTO is distributed to other caches.
	Requester string
}

// RawAPIData is published for every document fetched from the REST API.
type RawAPIData struct {
	RequestID uuid.UUID
	EventID   urn.URN
	URL       string
	Language  string
	Payload   []byte
	Elapsed   time.Duration
	Path      ExecutionPath
	Time      time.Time
}

// DtoSaver receives the DTOs fetched by the router.
type DtoSaver interface {
	SaveDto(ctx context.Context, id urn.URN, item any, language string, dtoType dto.Type, requester string) error
}

// Router fetches documents from the REST API.
type Router struct {
	baseURL     string
	critical    *dataprovider.Fetcher
	nonCritical *dataprovider.Fetcher
	saver       DtoSaver
	metrics     *metrics.Collectors

	group    singleflight.Group
	rawData  *eventbus.Bus[RawAPIData]
	saveWG   sync.WaitGroup
	closeMu  sync.RWMutex
	closed   bool
	closeCtx context.Context
	cancel   context.CancelFunc
}

// New creates a Router for the REST API at baseURL. saver may be nil.
func New(baseURL string, saver DtoSaver, options ...Option) (*Router, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	critical, err := dataprovider.NewFetcher(
		dataprovider.WithClient(opts.httpClient),
		dataprovider.WithAccessToken(opts.accessToken),
		dataprovider.WithTimeout(opts.criticalTimeout),
		dataprovider.WithRetry(opts.retryMax, 0, 0))
	if err != nil {
		return nil, err
	}
	nonCritical, err := dataprovider.NewFetcher(
		dataprovider.WithClient(opts.httpClient),
		dataprovider.WithAccessToken(opts.accessToken),
		dataprovider.WithTimeout(opts.nonCriticalTimeout))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		baseURL:     baseURL,
		critical:    critical,
		nonCritical: nonCritical,
		saver:       saver,
		metrics:     opts.metrics,
		rawData:     eventbus.New[RawAPIData](),
		closeCtx:    ctx,
		cancel:      cancel,
	}, nil
}

// OnRawAPIData creates a channel that receives every fetched document.
// Calling the returned cancel function closes the channel.
func (r *Router) OnRawAPIData() (<-chan RawAPIData, context.CancelFunc) {
	return r.rawData.Subscribe()
}

// SetSaver sets the receiver of fetched DTOs. It must be called before any
// request is made.
func (r *Router) SetSaver(saver DtoSaver) {
	r.saver = saver
}

// GetSportEventSummary fetches the summary of a match, stage or tournament.
// The result is a *dto.SportEventSummary or a *dto.TournamentInfo.
func (r *Router) GetSportEventSummary(ctx context.Context, req Request, id urn.URN, language string) (any, error) {
	v, _, err := fetch(r, ctx, req, "summary", summaryPath, restapi.DecodeSummary, id, language,
		func(v any) dto.Type { return summaryType(v, id) })
	return v, err
}

// GetFixture fetches the fixture of an event. A forced refresh bypasses the
// API's caches and is used after the feed reports a fixture change.
func (r *Router) GetFixture(ctx context.Context, req Request, id urn.URN, language string, forceRefresh bool) (*dto.Fixture, error) {
	tmpl, endpoint := fixturePath, "fixture"
	if forceRefresh {
		tmpl, endpoint = fixtureChangePath, "fixture_change_fixture"
	}
	v, _, err := fetch(r, ctx, req, endpoint, tmpl, restapi.DecodeFixture, id, language, constType[*dto.Fixture](dto.TypeFixture))
	return v, err
}

// GetTournamentInfo fetches the description of a tournament or season.
func (r *Router) GetTournamentInfo(ctx context.Context, req Request, id urn.URN, language string) (*dto.TournamentInfo, error) {
	v, _, err := fetch(r, ctx, req, "tournament_info", tournamentInfoPath, restapi.DecodeTournamentInfo, id, language,
		constType[*dto.TournamentInfo](dto.TypeTournamentInfo))
	return v, err
}

// GetCompetitorProfile fetches a competitor profile in each of languages
// concurrently. Profiles that could not be fetched are missing from the
// result and their errors are returned together.
func (r *Router) GetCompetitorProfile(ctx context.Context, req Request, id urn.URN, languages []string) (map[string]*dto.CompetitorProfile, error) {
	var (
		mu       sync.Mutex
		errs     error
		profiles = make(map[string]*dto.CompetitorProfile, len(languages))
	)
	var g errgroup.Group
	for _, lang := range languages {
		lang := lang
		g.Go(func() error {
			v, ok, err := fetch(r, ctx, req, "competitor_profile", competitorPath, restapi.DecodeCompetitorProfile, id, lang,
				constType[*dto.CompetitorProfile](dto.TypeCompetitorProfile))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, err)
				return nil
			}
			if ok {
				profiles[lang] = v
			}
			return nil
		})
	}
	_ = g.Wait()
	return profiles, errs
}

// GetDrawSummary fetches the summary, including results, of a lottery draw.
func (r *Router) GetDrawSummary(ctx context.Context, req Request, id urn.URN, language string) (*dto.Draw, error) {
	v, _, err := fetch(r, ctx, req, "draw_summary", drawSummaryPath, restapi.DecodeDrawSummary, id, language, constType[*dto.Draw](dto.TypeDraw))
	return v, err
}

// GetDrawFixture fetches the fixture of a lottery draw.
func (r *Router) GetDrawFixture(ctx context.Context, req Request, id urn.URN, language string) (*dto.Draw, error) {
	v, _, err := fetch(r, ctx, req, "draw_fixture", drawFixturePath, restapi.DecodeDrawFixture, id, language, constType[*dto.Draw](dto.TypeDraw))
	return v, err
}

// GetLotterySchedule fetches a lottery and its scheduled draws.
func (r *Router) GetLotterySchedule(ctx context.Context, req Request, id urn.URN, language string) (*dto.Lottery, error) {
	v, _, err := fetch(r, ctx, req, "lottery_schedule", lotterySchedulePath, restapi.DecodeLotterySchedule, id, language,
		constType[*dto.Lottery](dto.TypeLottery))
	return v, err
}

// Close waits for pending DTO distribution and closes all raw data channels.
func (r *Router) Close() error {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return nil
	}
	r.closed = true
	r.closeMu.Unlock()

	r.saveWG.Wait()
	r.cancel()
	r.rawData.Close()
	return nil
}

// fetch runs a request, collapsing concurrent requests for the same URL.
// The request that reaches the API records metrics and publishes the result
// once, whoever else shares it. On the non-critical path, failures are
// logged and ok is false.
func fetch[D any](r *Router, ctx context.Context, req Request, endpoint, tmpl string, decode func([]byte) (D, error), id urn.URN, language string, typeOf func(D) dto.Type) (value D, ok bool, err error) {
	r.closeMu.RLock()
	closed := r.closed
	r.closeMu.RUnlock()
	if closed {
		return value, false, ErrClosed
	}

	fetcher := r.critical
	if req.Path == NonCritical {
		fetcher = r.nonCritical
	}
	p := dataprovider.NewProvider(fetcher, r.baseURL+tmpl, decode)
	args := []string{language, id.String()}

	v, err, _ := r.group.Do(req.Path.String()+" "+p.URL(args...), func() (any, error) {
		start := time.Now()
		res, err := p.Get(ctx, args...)
		r.metrics.APIRequest(endpoint, req.Path.String(), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		publish(r, req, id, language, res, typeOf(res.Value))
		return res.Value, nil
	})
	if err != nil {
		if req.Path == NonCritical {
			log.Warnw("Non-critical request failed", "endpoint", endpoint, "id", id, "lang", language, "err", err)
			return value, false, nil
		}
		return value, false, err
	}
	value, _ = v.(D)
	return value, true, nil
}

// publish announces a fetched document and hands its DTO to the saver.
func publish[D any](r *Router, req Request, id urn.URN, language string, res *dataprovider.Result[D], dtoType dto.Type) {
	r.rawData.Publish(RawAPIData{
		RequestID: uuid.New(),
		EventID:   id,
		URL:       res.URL,
		Language:  language,
		Payload:   res.Payload,
		Elapsed:   res.Elapsed,
		Path:      req.Path,
		Time:      time.Now(),
	})

	if r.saver == nil {
		return
	}
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		return
	}
	value := any(res.Value)
	r.saveWG.Add(1)
	go func() {
		defer r.saveWG.Done()
		if err := r.saver.SaveDto(r.closeCtx, id, value, language, dtoType, req.Requester); err != nil {
			log.Debugw("Could not save dto", "id", id, "type", dtoType, "err", err)
		}
	}()
}

func constType[D any](t dto.Type) func(D) dto.Type {
	return func(D) dto.Type { return t }
}

func summaryType(v any, id urn.URN) dto.Type {
	switch v.(type) {
	case *dto.TournamentInfo:
		return dto.TypeTournamentInfo
	case *dto.Fixture:
		return dto.TypeFixture
	}
	if id.TypeGroup() == urn.Stage {
		return dto.TypeStageSummary
	}
	return dto.TypeMatchSummary
}
