package apierror

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidOperation marks a violated programming contract, such as
// releasing a lock that was never acquired or mutating a locked manager.
// These errors are never swallowed by the Catch strategy.
var ErrInvalidOperation = errors.New("invalid operation")

// Error is the type of error returned when communicating with the REST API
// fails. It carries the requested URL, the HTTP status code and the response
// body so that callers can interpret the failure.
type Error struct {
	err    error
	status int
	url    string
	body   []byte
}

// ResponseMessage is the error document returned by the REST API.
type ResponseMessage struct {
	XMLName      xml.Name `xml:"response"`
	ResponseCode string   `xml:"response_code,attr"`
	Action       string   `xml:"action"`
	Message      string   `xml:"message"`
}

func New(err error, status int) *Error {
	return &Error{
		err:    err,
		status: status,
	}
}

// FromResponse creates an Error from a failed HTTP response. If the body holds
// a REST API response document, its message is used as the error text.
func FromResponse(url string, status int, body []byte) error {
	var err error
	if msg, derr := DecodeResponse(body); derr == nil && msg.Message != "" {
		err = errors.New(msg.Message)
	} else if text := strings.TrimSpace(string(body)); text != "" {
		err = errors.New(text)
	}
	if status == 0 && url == "" {
		return err
	}
	return &Error{
		err:    err,
		status: status,
		url:    url,
		body:   body,
	}
}

// Wrap creates an Error for a request that failed before a response was
// received, such as a timeout or connection failure.
func Wrap(url string, err error) *Error {
	return &Error{
		err: err,
		url: url,
	}
}

func (e *Error) Error() string {
	var prefix string
	if e.url != "" {
		prefix = "request to " + e.url + " failed: "
	}
	if e.err != nil {
		return prefix + e.err.Error()
	}
	if e.status == 0 {
		return strings.TrimSuffix(prefix, ": ")
	}
	// If there is only status, then return status text
	if text := http.StatusText(e.status); text != "" {
		return fmt.Sprintf("%s%d %s", prefix, e.status, text)
	}
	return fmt.Sprintf("%s%d", prefix, e.status)
}

func (e *Error) Status() int {
	return e.status
}

func (e *Error) URL() string {
	return e.url
}

func (e *Error) Body() []byte {
	return e.body
}

func (e *Error) Text() string {
	parts := make([]string, 0, 5)
	if e.status != 0 {
		parts = append(parts, fmt.Sprintf("%d", e.status))
		text := http.StatusText(e.status)
		if text != "" {
			parts = append(parts, " ")
			parts = append(parts, text)
		}
	}
	if e.err != nil {
		if len(parts) != 0 {
			parts = append(parts, ": ")
		}
		parts = append(parts, e.err.Error())
	}

	return strings.Join(parts, "")
}

func (e *Error) Unwrap() error {
	return e.err
}

// IsNotFound reports whether err is an Error with a 404 status.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound
}

// DecodeResponse decodes a REST API response document.
func DecodeResponse(data []byte) (*ResponseMessage, error) {
	if len(data) == 0 {
		return nil, errors.New("empty response")
	}
	var msg ResponseMessage
	if err := xml.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("cannot decode response message: %s", err)
	}
	return &msg, nil
}
