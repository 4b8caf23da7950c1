package apierror

import (
	"fmt"
	"strings"

	logging "github.com/ipfs/go-log/v2"
)

// Strategy selects how errors from read APIs reach application code.
type Strategy int

const (
	// Catch logs errors and returns zero values instead.
	Catch Strategy = iota
	// Throw returns errors to the caller.
	Throw
)

func (s Strategy) String() string {
	if s == Throw {
		return "throw"
	}
	return "catch"
}

// ParseStrategy parses "throw" or "catch", case insensitive.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "catch", "":
		return Catch, nil
	case "throw":
		return Throw, nil
	}
	return Catch, fmt.Errorf("unknown exception handling strategy %q", s)
}

// Handle applies the strategy to err. Under Catch, the error is logged and
// nil is returned, unless it is a programming error which is always returned.
func (s Strategy) Handle(err error, log *logging.ZapEventLogger, msg string, keysAndValues ...any) error {
	if err == nil {
		return nil
	}
	if s == Throw || IsProgrammingError(err) {
		return err
	}
	if log != nil {
		log.Warnw(msg, append(keysAndValues, "err", err)...)
	}
	return nil
}
