package strava

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuotaExceeded signals that the short-term or long-term rate limit quota
// is exhausted. It is backpressure, not a failure: callers defer remaining
// work to the next scheduled cycle instead of retrying.
var ErrQuotaExceeded = errors.New("strava: rate limit quota exhausted")

// Fault is a semantic error reported by the API: the request was accepted but
// the payload describes a problem (invalid token, invalid field, ...).
// Transport failures are returned as plain wrapped errors instead.
type Fault struct {
	StatusCode int          `json:"-"`
	Message    string       `json:"message"`
	Errors     []FaultError `json:"errors"`
}

// FaultError is one entry of a fault's errors array.
type FaultError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
}

func (f *Fault) Error() string {
	if len(f.Errors) == 0 {
		return fmt.Sprintf("strava fault: %s", f.Message)
	}
	parts := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		parts = append(parts, fmt.Sprintf("%s.%s %s", e.Resource, e.Field, e.Code))
	}
	return fmt.Sprintf("strava fault: %s (%s)", f.Message, strings.Join(parts, ", "))
}

// InvalidToken reports whether the fault indicates an expired or revoked
// access token, which the caller must answer with a token refresh.
func (f *Fault) InvalidToken() bool {
	for _, e := range f.Errors {
		if e.Field == "access_token" && e.Code == "invalid" {
			return true
		}
	}
	return false
}

// AsFault unwraps err into a *Fault if it is one.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
