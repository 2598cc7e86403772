package jobs

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/hibiken/asynq"
	"golang.org/x/oauth2"

	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/strava"
)

// isRetryableError determines if an error should trigger a job retry
func isRetryableError(err error) bool {
	if errors.Is(err, asynq.SkipRetry) || errors.Is(err, ErrNotConnected) || db.IsNotFound(err) {
		return false
	}

	// Strava rate limiting and server errors
	var apiErr *strava.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}

	// token endpoint failures: a revoked grant will not heal on retry
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		code := rErr.Response.StatusCode
		return code == 429 || code >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "dns") {
		return true
	}

	// Everything else (auth failures, bad data, etc.) - don't retry
	return false
}
