package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomPacer_JitterBounds(t *testing.T) {
	pacer := NewRandomPacer()

	for i := 0; i < 200; i++ {
		d := pacer.Jitter(10*time.Second, 25*time.Second)
		assert.GreaterOrEqual(t, d, 10*time.Second)
		assert.Less(t, d, 25*time.Second)
	}

	assert.Equal(t, 5*time.Second, pacer.Jitter(5*time.Second, 5*time.Second))
}

func TestRandomPacer_PauseHonoursContext(t *testing.T) {
	pacer := NewRandomPacer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := pacer.Pause(ctx, time.Minute, 2*time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRandomPacer_Intn(t *testing.T) {
	pacer := NewRandomPacer()

	assert.Equal(t, 0, pacer.Intn(0))
	for i := 0; i < 50; i++ {
		n := pacer.Intn(3)
		assert.True(t, n >= 0 && n < 3)
	}
}

func TestNoPacer_RecordsPauses(t *testing.T) {
	pacer := &NoPacer{}

	assert.NoError(t, pacer.Pause(context.Background(), time.Second, 2*time.Second))
	assert.NoError(t, pacer.Pause(context.Background(), 3*time.Second, 4*time.Second))

	assert.Equal(t, 2, pacer.Count())
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, pacer.Pauses)
}
