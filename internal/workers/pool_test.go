package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsSize(t *testing.T) {
	assert.Equal(t, DefaultSize, New(0).Size())
	assert.Equal(t, 8, New(8).Size())
}

func TestMapWritesByIndex(t *testing.T) {
	got, err := Map(context.Background(), New(3), 50, func(i int) (int, error) {
		return i * i, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i*i, v)
	}
}

func TestRunRespectsLimit(t *testing.T) {
	var active, peak int32
	err := New(2).Run(context.Background(), 20, func(int) error {
		cur := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestMapFailsWholeBatch(t *testing.T) {
	boom := errors.New("boom")
	got, err := Map(context.Background(), New(4), 10, func(i int) (float64, error) {
		if i == 5 {
			return 0, boom
		}
		return float64(i), nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestMapCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	got, err := Map(ctx, New(2), 100, func(i int) (float64, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestMapEmpty(t *testing.T) {
	got, err := Map(context.Background(), New(1), 0, func(int) (string, error) {
		return "x", nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}
