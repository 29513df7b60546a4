package zaver

import (
	"errors"
	"fmt"
)

// ErrInvalidCallbackToken indicates a callback whose Callback-Token header
// does not match the configured shared secret.
var ErrInvalidCallbackToken = errors.New("invalid callback token")

// Error is an error response from the Zaver API. It retains the request and
// response bodies for diagnostics.
type Error struct {
	StatusCode   int
	Message      string
	RequestBody  string
	ResponseBody string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("zaver: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("zaver: request failed with status %d", e.StatusCode)
}

// IsAPIError reports whether err is a Zaver API error and returns it if so.
func IsAPIError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
