// Package httputil provides retry helpers for upstream HTTP clients.
//
// # Retry
//
// [Retry] re-runs an operation for transient failures only. A failure is
// transient when it is wrapped in [RetryableError]; the integrations client
// wraps network errors and 5xx responses that way, while 404 and other 4xx
// responses fail immediately:
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy(), func() error {
//	    return fetchOnce(ctx)
//	})
//
// The delay doubles after every failed attempt, up to the policy's MaxDelay,
// and the wait is abandoned as soon as ctx is cancelled.
package httputil
