package recovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/dataprovider"
	"github.com/oddsfeed/go-uofsdk/producer"
)

// Request is a snapshot recovery request for one producer.
type Request struct {
	// After limits the recovery to messages generated after this time. The
	// zero time requests a full snapshot.
	After     time.Time
	RequestID int64
	NodeID    int
}

// Response is the API's answer to a recovery request.
type Response struct {
	Status  int
	Code    string
	Message string
}

// Requester sends recovery requests to the API.
type Requester interface {
	RequestRecovery(ctx context.Context, p producer.Producer, req Request) (Response, error)
}

// HTTPRequester posts recovery requests to the REST API.
type HTTPRequester struct {
	fetcher *dataprovider.Fetcher
	baseURL string
}

// NewHTTPRequester creates a requester for the API at baseURL, for example
// "https://api.betradar.com/v1". Producers with an API URL of their own are
// requested there instead.
func NewHTTPRequester(fetcher *dataprovider.Fetcher, baseURL string) *HTTPRequester {
	return &HTTPRequester{
		fetcher: fetcher,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// URL returns the recovery URL for the producer and request.
func (h *HTTPRequester) URL(p producer.Producer, req Request) string {
	base := p.APIURL
	if base == "" {
		base = h.baseURL + "/" + p.Name
	}
	q := url.Values{}
	if !req.After.IsZero() {
		q.Set("after", strconv.FormatInt(req.After.UnixMilli(), 10))
	}
	q.Set("request_id", strconv.FormatInt(req.RequestID, 10))
	if req.NodeID != 0 {
		q.Set("node_id", strconv.Itoa(req.NodeID))
	}
	return strings.TrimSuffix(base, "/") + "/recovery/initiate_request?" + q.Encode()
}

func (h *HTTPRequester) RequestRecovery(ctx context.Context, p producer.Producer, req Request) (Response, error) {
	body, err := h.fetcher.Post(ctx, h.URL(p, req), nil)
	if err != nil {
		var ae *apierror.Error
		if errors.As(err, &ae) {
			resp := Response{Status: ae.Status()}
			if msg, derr := apierror.DecodeResponse(ae.Body()); derr == nil {
				resp.Code, resp.Message = msg.ResponseCode, msg.Message
			}
			return resp, err
		}
		return Response{}, err
	}

	resp := Response{Status: 200}
	if len(body) == 0 {
		return resp, nil
	}
	msg, err := apierror.DecodeResponse(body)
	if err != nil {
		return resp, fmt.Errorf("cannot read recovery response: %w", err)
	}
	resp.Code, resp.Message = msg.ResponseCode, msg.Message
	return resp, nil
}
