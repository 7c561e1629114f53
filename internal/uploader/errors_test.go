package uploader

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func apiError(code int, reason string) *googleapi.Error {
	err := &googleapi.Error{Code: code}
	if reason != "" {
		err.Errors = []googleapi.ErrorItem{{Reason: reason}}
	}

	return err
}

func TestClassifyQuotaExceededIsPermanent(t *testing.T) {
	err := classify(apiError(http.StatusForbidden, "storageQuotaExceeded"))

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.False(t, Retryable(err))
}

func TestClassifyRateLimitIsRetryable(t *testing.T) {
	assert.True(t, Retryable(classify(apiError(http.StatusForbidden, "rateLimitExceeded"))))
	assert.True(t, Retryable(classify(apiError(http.StatusForbidden, "userRateLimitExceeded"))))
	assert.True(t, Retryable(classify(apiError(http.StatusTooManyRequests, ""))))
}

func TestClassifyServerErrorIsRetryable(t *testing.T) {
	assert.True(t, Retryable(classify(apiError(http.StatusInternalServerError, ""))))
	assert.True(t, Retryable(classify(apiError(http.StatusServiceUnavailable, ""))))
}

func TestClassifyAuthErrorIsPermanent(t *testing.T) {
	assert.False(t, Retryable(classify(apiError(http.StatusUnauthorized, ""))))
	assert.False(t, Retryable(classify(apiError(http.StatusForbidden, "insufficientPermissions"))))
	assert.False(t, Retryable(classify(apiError(http.StatusNotFound, ""))))
}

func TestClassifyNetworkErrorIsRetryable(t *testing.T) {
	err := classify(fmt.Errorf("dial tcp: connection refused"))

	assert.True(t, Retryable(err))

	var transient *TransientError
	assert.True(t, errors.As(err, &transient))
}
