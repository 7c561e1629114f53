package uploader

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrQuotaExceeded is permanent: retrying wastes bandwidth, and with a
// service account on a personal Drive it will never succeed (service
// accounts have no personal storage quota).
var ErrQuotaExceeded = errors.New("storage quota exceeded: service accounts do not work with personal Gmail, use oauth instead")

// TransientError marks a delivery failure worth retrying: network errors,
// rate limits, and server-side failures.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient delivery error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func Retryable(err error) bool {
	_, ok := errors.AsType[*TransientError](err)
	return ok
}

// classify maps a raw Drive API error onto the retry taxonomy. Anything
// that is not a googleapi.Error is assumed to be a network-level failure.
func classify(err error) error {
	apiErr, ok := errors.AsType[*googleapi.Error](err)
	if !ok {
		return &TransientError{Err: err}
	}

	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "storageQuotaExceeded":
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		case "rateLimitExceeded", "userRateLimitExceeded":
			return &TransientError{Err: err}
		}
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
		return &TransientError{Err: err}
	default:
		return fmt.Errorf("drive api error: %w", err)
	}
}
