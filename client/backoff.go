package client

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff yields exponentially growing reconnect delays with jitter.
type Backoff struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
	Jitter float64 // fraction, 0.2 means +-20%

	attempt int
	rand    func() float64
}

func DefaultBackoff() *Backoff {
	return &Backoff{Base: time.Second, Factor: 2, Max: 30 * time.Second, Jitter: 0.2}
}

// Next returns the delay before the next attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	d := float64(b.Base) * math.Pow(b.Factor, float64(b.attempt))
	if d > float64(b.Max) || math.IsInf(d, 0) {
		d = float64(b.Max)
	} else {
		b.attempt++
	}

	if b.Jitter > 0 {
		r := rand.Float64
		if b.rand != nil {
			r = b.rand
		}
		d += d * b.Jitter * (2*r() - 1)
	}

	return time.Duration(d)
}

// Reset is called after a successful connect.
func (b *Backoff) Reset() {
	b.attempt = 0
}
