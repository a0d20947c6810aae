package relay

import (
	"math/rand/v2"
	"time"
)

// backoff doubles the idle wait after each failed batch up to max and drops
// back to base on the first success. Every wait gets up to jitter extra so
// relays started together drift apart.
type backoff struct {
	base, max, jitter time.Duration
	current           time.Duration
}

func newBackoff(base, max, jitter time.Duration) *backoff {
	if max < base {
		max = base
	}
	return &backoff{base: base, max: max, jitter: jitter, current: base}
}

func (b *backoff) reset() time.Duration {
	b.current = b.base
	return b.withJitter(b.current)
}

func (b *backoff) fail() time.Duration {
	b.current = min(b.current*2, b.max)
	return b.withJitter(b.current)
}

func (b *backoff) withJitter(d time.Duration) time.Duration {
	if b.jitter <= 0 {
		return d
	}
	return d + rand.N(b.jitter)
}
