package apierror

import (
	"errors"
	"fmt"
)

// DeserializationError is returned when a payload cannot be parsed.
type DeserializationError struct {
	// Root is the name of the root element, when known.
	Root    string
	Payload []byte
	Err     error
}

func (e *DeserializationError) Error() string {
	if e.Root != "" {
		return fmt.Sprintf("cannot deserialize %s: %s", e.Root, e.Err)
	}
	return fmt.Sprintf("cannot deserialize payload: %s", e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// MappingError is returned when a decoded value cannot be converted into its
// cache or domain representation.
type MappingError struct {
	Property string
	Value    string
	Target   string
	Err      error
}

func (e *MappingError) Error() string {
	msg := fmt.Sprintf("cannot map property %s value %q to %s", e.Property, e.Value, e.Target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when an entity could not be found in the cache
// nor fetched from the REST API.
type NotFoundError struct {
	Key string
	Err error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache item %s not found: %s", e.Key, e.Err)
	}
	return fmt.Sprintf("cache item %s not found", e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ErrInvalidArgument marks an argument outside the range an operation
// accepts.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgument wraps ErrInvalidArgument with a description.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidOperation wraps ErrInvalidOperation with a description.
func InvalidOperation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

// IsProgrammingError reports whether err is a violated programming contract.
func IsProgrammingError(err error) bool {
	return errors.Is(err, ErrInvalidOperation) || errors.Is(err, ErrInvalidArgument)
}
