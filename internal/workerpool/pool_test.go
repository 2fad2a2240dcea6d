package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveSize(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = New(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRunBatchesProcessesEveryItem(t *testing.T) {
	p, err := New(4)
	require.NoError(t, err)

	var count int64
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	err = RunBatches(context.Background(), p, items, func(ctx context.Context, item int) error {
		atomic.AddInt64(&count, int64(item))
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 36, count)
}

func TestRunBatchesShortCircuitsOnFirstError(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	boom := errors.New("boom")
	items := []int{1, 2, 3}
	err = RunBatches(context.Background(), p, items, func(ctx context.Context, item int) error {
		if item == 2 {
			return boom
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunBatchesRecoversPanic(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	err = RunBatches(context.Background(), p, []int{1}, func(ctx context.Context, item int) error {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panicked")
}

func TestRunBatchesNoopOnEmptyItems(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	err = RunBatches(context.Background(), p, []int{}, func(ctx context.Context, item int) error {
		t.Fatal("should not be called")
		return nil
	})
	assert.NoError(t, err)
}

func TestRunBatchesFailsFastWhenPoolClosed(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	err = RunBatches(context.Background(), p, []int{1}, func(ctx context.Context, item int) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestSizeReturnsConfiguredDegree(t *testing.T) {
	p, err := New(3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())
}
