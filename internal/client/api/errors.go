package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/pkg/api"
)

// HTTPError is a non-2xx server response. It unwraps to the matching remote error.
type HTTPError struct {
	Code       string
	Message    string
	StatusCode int
}

func newHTTPError(status int, body []byte) *HTTPError {
	var resp api.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &HTTPError{StatusCode: status, Message: string(body)}
	}
	msg := resp.Message
	if msg == "" {
		msg = resp.Error
	}
	return &HTTPError{StatusCode: status, Code: resp.Code, Message: msg}
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return sentinel(e.Code, e.StatusCode)
}

// sentinel maps a wire error code, or the status when the code is missing, to a remote error.
func sentinel(code string, status int) error {
	switch code {
	case api.CodeNotFound:
		return remote.ErrNotFound
	case api.CodePermissionDenied:
		return remote.ErrPermissionDenied
	case api.CodeUnauthenticated:
		return remote.ErrUnauthenticated
	case api.CodeInvalidArgument, api.CodeConflict:
		return remote.ErrInvalidArgument
	case api.CodeUnavailable:
		return remote.ErrUnavailable
	}

	switch {
	case status == http.StatusNotFound:
		return remote.ErrNotFound
	case status == http.StatusForbidden:
		return remote.ErrPermissionDenied
	case status == http.StatusUnauthorized:
		return remote.ErrUnauthenticated
	case status == http.StatusBadRequest, status == http.StatusConflict:
		return remote.ErrInvalidArgument
	case status == http.StatusTooManyRequests, status >= 500:
		return remote.ErrUnavailable
	}
	return nil
}

// errorFromResponse converts an error message pushed over a subscription.
func errorFromResponse(resp *api.ErrorResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: subscription failed", remote.ErrUnavailable)
	}
	base := sentinel(resp.Code, 0)
	if base == nil {
		base = remote.ErrUnavailable
	}
	msg := resp.Message
	if msg == "" {
		msg = resp.Error
	}
	return fmt.Errorf("%w: %s", base, msg)
}
