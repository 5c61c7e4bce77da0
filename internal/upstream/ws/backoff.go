package ws

import (
	"math"
	"time"
)

// Backoff computes exponential reconnect delays, generalizing the teacher's
// inline pow(2, attempt) calculation in goalserve_ws.Client.ConnectWithRetry
// into a reusable, configurable type.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return b.Initial
	}
	mult := b.Multiplier
	if mult <= 1 {
		mult = 2
	}
	d := float64(b.Initial) * math.Pow(mult, float64(attempt-1))
	if d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}
