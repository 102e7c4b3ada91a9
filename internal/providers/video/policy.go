package video

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PollPolicy controls how often a running operation is checked and for how
// long. A Multiplier of 1 keeps a fixed interval; MaxWait of 0 polls until
// the upstream reports completion.
type PollPolicy struct {
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	MaxWait     time.Duration
}

// DefaultPollPolicy checks every 10 seconds for at most 10 minutes.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    10 * time.Second,
		Multiplier:  1,
		MaxInterval: time.Minute,
		MaxWait:     10 * time.Minute,
	}
}

func (p PollPolicy) normalized() PollPolicy {
	def := DefaultPollPolicy()
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	if p.MaxWait < 0 {
		p.MaxWait = 0
	}
	return p
}

// schedule returns a fresh, jitter-free wait sequence. NextBackOff yields
// backoff.Stop once the next wait would exceed MaxWait.
func (p PollPolicy) schedule() backoff.BackOff {
	p = p.normalized()
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.Interval,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxInterval,
		MaxElapsedTime:      p.MaxWait,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}
