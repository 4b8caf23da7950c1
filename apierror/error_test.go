package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/stretchr/testify/require"
)

const notFoundBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<response response_code="NOT_FOUND">
  <action>Request for sport event summary sr:match:1 for language en</action>
  <message>No data found</message>
</response>`

func TestNew(t *testing.T) {
	err := apierror.New(errors.New("test error"), 0)
	require.Equal(t, "test error", err.Error())

	err = apierror.New(nil, http.StatusNotFound)
	require.Equal(t, fmt.Sprintf("%d %s", http.StatusNotFound, http.StatusText(http.StatusNotFound)), err.Error())

	err = apierror.New(nil, 0)
	require.Equal(t, "", err.Error())

	err = apierror.New(nil, 999)
	require.Equal(t, "999", err.Error())
}

func TestFromResponse(t *testing.T) {
	err := apierror.FromResponse("", 0, []byte(" hello world\n"))
	require.Equal(t, "hello world", err.Error())

	err = apierror.FromResponse("", http.StatusTeapot, []byte(" hello world\n"))
	require.Equal(t, "hello world", err.Error())

	ae, ok := err.(*apierror.Error)
	require.True(t, ok)
	require.Equal(t, http.StatusTeapot, ae.Status())

	err = apierror.FromResponse("", http.StatusTeapot, nil)
	require.Equal(t, fmt.Sprintf("%d %s", http.StatusTeapot, http.StatusText(http.StatusTeapot)), err.Error())
}

func TestFromResponseDocument(t *testing.T) {
	u := "https://api.example.com/v1/sports/en/sport_events/sr:match:1/summary.xml"
	err := apierror.FromResponse(u, http.StatusNotFound, []byte(notFoundBody))
	require.ErrorContains(t, err, "No data found")
	require.ErrorContains(t, err, u)
	require.True(t, apierror.IsNotFound(err))

	var ae *apierror.Error
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &ae)
	require.Equal(t, u, ae.URL())
	require.Equal(t, []byte(notFoundBody), ae.Body())
	require.Equal(t, "404 Not Found: No data found", ae.Text())
}

func TestDecodeResponse(t *testing.T) {
	_, err := apierror.DecodeResponse(nil)
	require.Error(t, err)

	_, err = apierror.DecodeResponse([]byte("hello world"))
	require.ErrorContains(t, err, "cannot decode response message")

	msg, err := apierror.DecodeResponse([]byte(notFoundBody))
	require.NoError(t, err)
	require.Equal(t, "NOT_FOUND", msg.ResponseCode)
	require.Equal(t, "No data found", msg.Message)
}

func TestWrap(t *testing.T) {
	errTimeout := errors.New("i/o timeout")
	err := apierror.Wrap("http://x/y", errTimeout)
	require.ErrorIs(t, err, errTimeout)
	require.Equal(t, "request to http://x/y failed: i/o timeout", err.Error())
	require.False(t, apierror.IsNotFound(err))
}

func TestUnwrap(t *testing.T) {
	errEOF := errors.New("end of file")
	err := apierror.New(errEOF, 0)
	require.ErrorIs(t, err, errEOF)

	derr := &apierror.DeserializationError{Root: "fixtures_fixture", Payload: []byte("<x"), Err: errEOF}
	require.ErrorIs(t, derr, errEOF)
	require.Equal(t, "cannot deserialize fixtures_fixture: end of file", derr.Error())

	nf := &apierror.NotFoundError{Key: "sr:match:1"}
	require.Equal(t, "cache item sr:match:1 not found", nf.Error())

	merr := &apierror.MappingError{Property: "scheduled", Value: "yesterday", Target: "time.Time"}
	require.Equal(t, `cannot map property scheduled value "yesterday" to time.Time`, merr.Error())
}

func TestStrategy(t *testing.T) {
	s, err := apierror.ParseStrategy("Throw")
	require.NoError(t, err)
	require.Equal(t, apierror.Throw, s)

	s, err = apierror.ParseStrategy("")
	require.NoError(t, err)
	require.Equal(t, apierror.Catch, s)

	_, err = apierror.ParseStrategy("ignore")
	require.Error(t, err)

	commErr := apierror.New(errors.New("boom"), http.StatusInternalServerError)
	require.NoError(t, apierror.Catch.Handle(commErr, nil, "ignored"))
	require.ErrorIs(t, apierror.Throw.Handle(commErr, nil, "returned"), commErr)

	progErr := apierror.InvalidOperation("release of %s", "x")
	require.True(t, apierror.IsProgrammingError(progErr))
	require.ErrorIs(t, apierror.Catch.Handle(progErr, nil, "never swallowed"), apierror.ErrInvalidOperation)
}
