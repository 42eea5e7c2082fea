package session

import (
	"math/rand"
	"time"
)

// RetryDelay computes the wait before reconnect attempt+1. Attempts are
// 1-based: the first retry waits roughly InitialDelay and every further one
// scales it by Multiplier until MaxDelay caps it. With Jitter the delay is
// spread over [50%, 150%) of the scaled value so a fleet of clients does not
// redial a recovering server in lockstep.
func (b BackoffConfig) RetryDelay(attempt int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	mult := b.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}

	delay := b.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * mult)
		if b.MaxDelay > 0 && delay >= b.MaxDelay {
			delay = b.MaxDelay
			break
		}
	}

	if !b.Jitter {
		return delay
	}
	if rng == nil {
		return delay / 2
	}
	return delay/2 + time.Duration(rng.Float64()*float64(delay))
}
