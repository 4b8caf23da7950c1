package dataprovider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/dataprovider"
	"github.com/oddsfeed/go-uofsdk/dto"
	"github.com/oddsfeed/go-uofsdk/internal/test"
	"github.com/oddsfeed/go-uofsdk/restapi"
	"github.com/oddsfeed/go-uofsdk/urn"
	"github.com/stretchr/testify/require"
)

func TestFetcherGet(t *testing.T) {
	var gotToken string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("x-access-token")
		w.Write([]byte("<ok/>"))
	}))
	defer ts.Close()

	f, err := dataprovider.NewFetcher(dataprovider.WithAccessToken("secret"))
	require.NoError(t, err)
	data, err := f.Get(context.Background(), ts.URL+"/x.xml")
	require.NoError(t, err)
	require.Equal(t, "<ok/>", string(data))
	require.Equal(t, "secret", gotToken)
}

func TestFetcherErrorResponse(t *testing.T) {
	api := test.NewAPIServer(t)
	f, err := dataprovider.NewFetcher()
	require.NoError(t, err)

	u := api.URL + "/sports/en/sport_events/sr:match:1/summary.xml"
	_, err = f.Get(context.Background(), u)
	require.True(t, apierror.IsNotFound(err))

	var ae *apierror.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, u, ae.URL())
	require.Equal(t, http.StatusNotFound, ae.Status())
	require.Contains(t, string(ae.Body()), "NOT_FOUND")
	require.ErrorContains(t, err, "No data found")
}

func TestFetcherRetry(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<ok/>"))
	}))
	defer ts.Close()

	f, err := dataprovider.NewFetcher(dataprovider.WithRetry(3, time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)
	data, err := f.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Equal(t, "<ok/>", string(data))
	require.Equal(t, int32(3), calls.Load())

	calls.Store(-10)
	f, err = dataprovider.NewFetcher(dataprovider.WithRetry(1, time.Millisecond, time.Millisecond))
	require.NoError(t, err)
	_, err = f.Get(context.Background(), ts.URL)
	var ae *apierror.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, http.StatusServiceUnavailable, ae.Status())
}

func TestFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	f, err := dataprovider.NewFetcher(dataprovider.WithTimeout(20 * time.Millisecond))
	require.NoError(t, err)
	_, err = f.Get(context.Background(), ts.URL)
	var ae *apierror.Error
	require.ErrorAs(t, err, &ae)
	require.Zero(t, ae.Status())
	require.Equal(t, ts.URL, ae.URL())
}

func TestProvider(t *testing.T) {
	api := test.NewAPIServer(t)
	id := urn.MustParse("sr:match:42")
	api.Handle("/sports/de/sport_events/sr:match:42/fixture.xml", test.FixtureXML(id, "de", test.FixtureOptions{}))
	api.Handle("/sports/en/sport_events/sr:match:42/fixture.xml", "<fixtures_fixture")

	f, err := dataprovider.NewFetcher()
	require.NoError(t, err)
	p := dataprovider.NewProvider[*dto.Fixture](f, api.URL+"/sports/%s/sport_events/%s/fixture.xml", restapi.DecodeFixture)

	res, err := p.Get(context.Background(), "de", id.String())
	require.NoError(t, err)
	require.Equal(t, id, res.Value.ID)
	require.Equal(t, "Event 42 de", res.Value.Name)
	require.Equal(t, api.URL+"/sports/de/sport_events/sr:match:42/fixture.xml", res.URL)
	require.NotEmpty(t, res.Payload)

	_, err = p.Get(context.Background(), "en", id.String())
	var derr *apierror.DeserializationError
	require.True(t, errors.As(err, &derr))
}

func TestInvalidOptions(t *testing.T) {
	_, err := dataprovider.NewFetcher(dataprovider.WithTimeout(0))
	require.Error(t, err)
	_, err = dataprovider.NewFetcher(dataprovider.WithRetry(-1, 0, 0))
	require.Error(t, err)
}
