package upstream

import (
	"errors"
	"math/rand"
	"time"
)

// Jitter bounds for the single retry the profile resolver is allowed
// per provider. Spreading retries avoids synchronized hammering when a
// provider blips.
const (
	RetryJitterMin = 50 * time.Millisecond
	RetryJitterMax = 150 * time.Millisecond
)

// RetryDelay returns a uniformly jittered delay in [RetryJitterMin, RetryJitterMax).
func RetryDelay() time.Duration {
	spread := RetryJitterMax - RetryJitterMin
	return RetryJitterMin + time.Duration(rand.Int63n(int64(spread)))
}

// Retryable reports whether an error is worth a retry.
// Not-found is a definitive answer and unauthorized never heals on
// retry, so only transport-shaped failures qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUpstream)
}
