package timeutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	assert.False(t, now.Before(before) || now.After(after),
		"Now() = %v, expected between %v and %v", now, before, after)
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	assert.GreaterOrEqual(t, clock.Since(past), time.Second)
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	assert.Equal(t, start, clock.Now())

	clock.Advance(250 * time.Millisecond)
	assert.Equal(t, start.Add(250*time.Millisecond), clock.Now())
	assert.Equal(t, 250*time.Millisecond, clock.Since(start))

	later := start.Add(time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
	assert.Equal(t, time.Hour, clock.Since(start))
}

func TestMockClock_ConcurrentAdvance(t *testing.T) {
	start := time.Unix(0, 0)
	clock := NewMockClock(start)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50*time.Millisecond, clock.Since(start))
}

func TestClockInterface(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = (*MockClock)(nil)
}
