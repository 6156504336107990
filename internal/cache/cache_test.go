package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

type countingObserver struct {
	hits, misses, evicted atomic.Int64
}

func (o *countingObserver) Hit()          { o.hits.Add(1) }
func (o *countingObserver) Miss()         { o.misses.Add(1) }
func (o *countingObserver) Evicted(n int) { o.evicted.Add(int64(n)) }

func newTestCache(t *testing.T, opts ...Option) (*Cache[string, int], *testingclock.FakeClock, *countingObserver) {
	t.Helper()

	fake := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	obs := &countingObserver{}

	opts = append([]Option{WithClock(fake), WithObserver(obs)}, opts...)

	return New[string, int](nil, opts...), fake, obs
}

func constant(v int, calls *atomic.Int64) func() (int, error) {
	return func() (int, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestGetOrCreate_CachesWithinIdleWindow(t *testing.T) {
	c, fake, obs := newTestCache(t)

	var calls atomic.Int64

	v, err := c.GetOrCreate("train", constant(1, &calls))
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	fake.Step(9 * time.Minute)
	v, err = c.GetOrCreate("train", constant(2, &calls))
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// the previous access reset the idle timer
	fake.Step(9 * time.Minute)
	v, err = c.GetOrCreate("train", constant(3, &calls))
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(2), obs.hits.Load())
	assert.Equal(t, int64(1), obs.misses.Load())
}

func TestGetOrCreate_RebuildsAfterIdleExpiry(t *testing.T) {
	c, fake, obs := newTestCache(t)

	var calls atomic.Int64

	_, err := c.GetOrCreate("train", constant(1, &calls))
	require.NoError(t, err)

	fake.Step(DefaultTTL)

	v, err := c.GetOrCreate("train", constant(2, &calls))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, int64(1), obs.evicted.Load())
}

func TestGetOrCreate_FailuresAreNotCached(t *testing.T) {
	c, _, _ := newTestCache(t)

	boom := errors.New("boom")
	_, err := c.GetOrCreate("train", func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrCreate("train", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrCreate_ConcurrentCallersShareOneBuild(t *testing.T) {
	c, _, _ := newTestCache(t)

	var calls atomic.Int64
	release := make(chan struct{})

	build := func() (int, error) {
		calls.Add(1)
		<-release

		return 42, nil
	}

	var (
		wg      conc.WaitGroup
		results [16]int
	)
	for i := range results {
		wg.Go(func() {
			v, err := c.GetOrCreate("train", build)
			assert.NoError(t, err)
			results[i] = v
		})
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestGet(t *testing.T) {
	c, fake, obs := newTestCache(t, WithTTL(time.Minute))

	_, ok := c.Get("missing")
	assert.False(t, ok)

	_, err := c.GetOrCreate("k", func() (int, error) { return 1, nil })
	require.NoError(t, err)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	fake.Step(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	assert.Equal(t, int64(1), obs.hits.Load())
	assert.Equal(t, int64(3), obs.misses.Load())
}

func TestSweep(t *testing.T) {
	c, fake, obs := newTestCache(t)

	for _, k := range []string{"a", "b", "c"} {
		_, err := c.GetOrCreate(k, func() (int, error) { return 0, nil })
		require.NoError(t, err)
	}

	fake.Step(5 * time.Minute)
	_, _ = c.Get("a")
	fake.Step(5 * time.Minute)

	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(2), obs.evicted.Load())

	assert.Equal(t, 0, c.Sweep())
}

func TestRun(t *testing.T) {
	c, fake, _ := newTestCache(t, WithTTL(time.Minute))

	_, err := c.GetOrCreate("k", func() (int, error) { return 0, nil })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	var wg conc.WaitGroup
	wg.Go(func() { c.Run(ctx, 30*time.Second) })

	require.Eventually(t, fake.HasWaiters, time.Second, time.Millisecond)

	fake.Step(time.Minute)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, time.Millisecond)

	cancel()
	wg.Wait()
}

func TestWithTTL_IgnoresNonPositive(t *testing.T) {
	c := New[string, int](nil, WithTTL(0))
	assert.Equal(t, DefaultTTL, c.TTL())
}
