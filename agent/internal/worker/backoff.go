package worker

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	backoffJitter     = 0.25
)

// newReconnectBackOff doubles the wait from backoffInitial up to backoffMax
// with ±25% jitter and never gives up.
func newReconnectBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffInitial
	b.MaxInterval = backoffMax
	b.Multiplier = backoffMultiplier
	b.RandomizationFactor = backoffJitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
