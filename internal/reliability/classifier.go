package reliability

import (
	"errors"
	"time"
)

// HTTPStatusCarrier is implemented by provider errors that retain the
// upstream HTTP status code.
type HTTPStatusCarrier interface {
	error
	HTTPStatus() int
}

// HTTPStatusOf extracts the upstream HTTP status from an error chain.
func HTTPStatusOf(err error) (int, bool) {
	var sc HTTPStatusCarrier
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), true
	}
	return 0, false
}

// IsRateLimited reports whether err signals an upstream rate-limit condition.
func IsRateLimited(err error) bool {
	code, ok := HTTPStatusOf(err)
	return ok && code == 429
}

// IsCredentialRejected reports whether err signals a credential problem.
func IsCredentialRejected(err error) bool {
	code, ok := HTTPStatusOf(err)
	return ok && (code == 401 || code == 403)
}

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// LinearBackoff computes the delay before the attempt after `attempt`
// (1-based): attempt*unit. Deterministic so retry policies stay testable.
func LinearBackoff(attempt int, unit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * unit
}
