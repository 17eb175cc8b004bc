package scraper

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Sleeper pauses for the given duration or until the context is done.
// Injected so tests can capture the schedule instead of waiting it out.
type Sleeper func(ctx context.Context, d time.Duration) error

func DefaultSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const (
	defaultMinDelay = 1 * time.Second
	defaultMaxDelay = 3 * time.Second
	minimumDelay    = 500 * time.Millisecond
)

// delayPolicy produces the human-looking pauses between fetches. The
// base delay is drawn uniformly from [minDelay, maxDelay], doubled per
// retry, then jittered by up to ±20%.
type delayPolicy struct {
	minDelay time.Duration
	maxDelay time.Duration

	mutex sync.Mutex
	rng   *rand.Rand
}

func newDelayPolicy(minDelay, maxDelay time.Duration, rng *rand.Rand) *delayPolicy {
	return &delayPolicy{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rng,
	}
}

func (p *delayPolicy) delay(retry int) time.Duration {
	p.mutex.Lock()
	baseFraction := p.rng.Float64()
	jitterFraction := p.rng.Float64()*0.4 - 0.2
	p.mutex.Unlock()

	base := float64(p.minDelay) + baseFraction*float64(p.maxDelay-p.minDelay)
	backedOff := base * math.Pow(2, float64(retry))
	jittered := backedOff + backedOff*jitterFraction

	d := time.Duration(jittered)
	if d < minimumDelay {
		d = minimumDelay
	}
	return d
}

// random returns a uniform float in [0, 1).
func (p *delayPolicy) random() float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.rng.Float64()
}
