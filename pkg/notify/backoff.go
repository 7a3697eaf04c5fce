package notify

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// nextRetryDelay computes base*2^retryCount with ±25% jitter, per
// spec.md §4.2. The exponent/multiplier/jitter arithmetic is
// cenkalti/backoff/v4's ExponentialBackOff — only NextBackOff() is
// used here, stepped retryCount+1 times to reach the delay for this
// attempt. The package's own Retry driver is intentionally unused:
// the retry loop is the store-backed reclaim scan (§4.2), not an
// in-process retry(ctx, op) call.
func nextRetryDelay(base time.Duration, retryCount int) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = base
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.25
	eb.MaxElapsedTime = 0
	eb.MaxInterval = base * time.Duration(1<<uint(retryCount))
	eb.Reset()

	var delay time.Duration
	for i := 0; i <= retryCount; i++ {
		delay = eb.NextBackOff()
	}
	return delay
}
