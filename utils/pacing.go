package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer inserts bounded random pauses between browser and batch steps
type Pacer interface {
	Pause(ctx context.Context, min, max time.Duration) error
	Intn(n int) int
}

// RandomPacer sleeps for a uniformly distributed duration in [min, max)
type RandomPacer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPacer creates a pacer seeded from the current time
func NewRandomPacer() *RandomPacer {
	return &RandomPacer{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Pause blocks for a jittered delay or until ctx is done
func (p *RandomPacer) Pause(ctx context.Context, min, max time.Duration) error {
	delay := p.Jitter(min, max)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter picks a delay in [min, max)
func (p *RandomPacer) Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + time.Duration(p.rng.Int63n(int64(max-min)))
}

// Intn returns a random int in [0, n)
func (p *RandomPacer) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// NoPacer never sleeps. Used by tests and dry runs.
type NoPacer struct {
	mu     sync.Mutex
	Pauses []time.Duration
}

// Pause records the lower bound of the requested pause and returns immediately
func (p *NoPacer) Pause(ctx context.Context, min, max time.Duration) error {
	p.mu.Lock()
	p.Pauses = append(p.Pauses, min)
	p.mu.Unlock()
	return ctx.Err()
}

// Intn always returns 0
func (p *NoPacer) Intn(n int) int { return 0 }

// Count returns how many pauses were requested
func (p *NoPacer) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Pauses)
}
