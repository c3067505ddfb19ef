package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEmpty(t *testing.T) {
	res, err := Run(context.Background(), nil, func(ctx context.Context, key string) (string, error) {
		t.Fatal("fn must not be called")
		return "", nil
	}, Options{})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestRunKeepsInputOrder(t *testing.T) {
	keys := []string{"z1", "z2", "z3", "z4", "z5"}
	// later keys finish first
	delay := map[string]time.Duration{
		"z1": 50 * time.Millisecond,
		"z2": 40 * time.Millisecond,
		"z3": 30 * time.Millisecond,
		"z4": 20 * time.Millisecond,
		"z5": 10 * time.Millisecond,
	}

	res, err := Run(context.Background(), keys, func(ctx context.Context, key string) (string, error) {
		time.Sleep(delay[key])
		return fmt.Sprintf(`{"id":%q}`, key), nil
	}, Options{})
	require.NoError(t, err)
	require.Len(t, res, len(keys))
	for i, r := range res {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, keys[i], r.Key)
		assert.Equal(t, fmt.Sprintf(`{"id":%q}`, keys[i]), r.Value)
		assert.NoError(t, r.Err)
	}
}

func TestRunDuplicateKeys(t *testing.T) {
	var calls atomic.Int32
	keys := []string{"a", "b", "a"}
	res, err := Run(context.Background(), keys, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return key, nil
	}, Options{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, "a", res[0].Value)
	assert.Equal(t, "b", res[1].Value)
	assert.Equal(t, "a", res[2].Value)
}

func TestRunRespectsLimit(t *testing.T) {
	const limit = 4
	keys := make([]string, 200)
	for i := range keys {
		keys[i] = fmt.Sprint(i)
	}

	var cur, peak atomic.Int32
	_, err := Run(context.Background(), keys, func(ctx context.Context, key string) (int, error) {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		cur.Add(-1)
		return 0, nil
	}, Options{Limit: limit})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Positive(t, peak.Load())
}

func TestRunUnbounded(t *testing.T) {
	// every call blocks until all of them have started, which only
	// completes when nothing limits the fan-out
	const n = 50
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprint(i)
	}
	var started sync.WaitGroup
	started.Add(n)
	all := make(chan struct{})
	go func() {
		started.Wait()
		close(all)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := Run(ctx, keys, func(ctx context.Context, key string) (string, error) {
		started.Done()
		select {
		case <-all:
			return key, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}, Options{})
	require.NoError(t, err)
	require.Len(t, res, n)
}

func TestRunLargeN(t *testing.T) {
	keys := make([]string, 5000)
	for i := range keys {
		keys[i] = fmt.Sprintf("z%d", i)
	}
	res, err := Run(context.Background(), keys, func(ctx context.Context, key string) (string, error) {
		return key, nil
	}, Options{Limit: 16})
	require.NoError(t, err)
	require.Len(t, res, len(keys))
	for i, r := range res {
		require.Equal(t, keys[i], r.Value)
	}
}

func TestRunFailFast(t *testing.T) {
	boom := errors.New("connection refused")
	var calls atomic.Int32

	res, err := Run(context.Background(), []string{"a", "b", "c", "d"}, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		if key == "b" {
			return "", boom
		}
		return key, nil
	}, Options{Limit: 1})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, res)

	var keyErr *KeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "b", keyErr.Key)
	// c and d never start once b has failed
	assert.EqualValues(t, 2, calls.Load())
}

func TestRunFailFastCancelsInFlight(t *testing.T) {
	boom := errors.New("boom")
	var cancelled atomic.Bool
	slowStarted := make(chan struct{})

	_, err := Run(context.Background(), []string{"slow", "bad"}, func(ctx context.Context, key string) (string, error) {
		if key == "bad" {
			<-slowStarted
			return "", boom
		}
		close(slowStarted)
		select {
		case <-ctx.Done():
			cancelled.Store(true)
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return key, nil
		}
	}, Options{})
	require.ErrorIs(t, err, boom)
	assert.True(t, cancelled.Load())
}

func TestRunKeepGoing(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}
	res, err := Run(context.Background(), keys, func(ctx context.Context, key string) (string, error) {
		if key == "b" || key == "d" {
			return "", fmt.Errorf("no record for %s", key)
		}
		return key, nil
	}, Options{KeepGoing: true, Limit: 2})
	require.Error(t, err)
	require.Len(t, res, len(keys))

	assert.Equal(t, "a", res[0].Value)
	assert.NoError(t, res[0].Err)
	assert.Error(t, res[1].Err)
	assert.Equal(t, "c", res[2].Value)
	assert.Error(t, res[3].Err)

	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, err.Error(), "b: no record for b")
	assert.Contains(t, err.Error(), "d: no record for d")
}

func TestRunProgress(t *testing.T) {
	keys := []string{"a", "b", "c"}
	var seen []int
	_, err := Run(context.Background(), keys, func(ctx context.Context, key string) (string, error) {
		return key, nil
	}, Options{Progress: func(done, total int) {
		assert.Equal(t, len(keys), total)
		seen = append(seen, done)
	}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}
