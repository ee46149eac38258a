package view

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleStates(t *testing.T) {
	l := NewLifecycle[[]string]()

	t.Run("InitialIsLoading", func(t *testing.T) {
		snap := l.Snapshot()
		assert.Equal(t, StatusLoading, snap.Status)
		assert.Empty(t, snap.Data)
		assert.Empty(t, snap.Error)
	})

	t.Run("ReadyWithData", func(t *testing.T) {
		gen := l.Begin()
		assert.True(t, l.Ready(gen, []string{"a"}))

		snap := l.Snapshot()
		assert.Equal(t, StatusReady, snap.Status)
		assert.Equal(t, []string{"a"}, snap.Data)
	})

	t.Run("ReadyWithEmptyIsNotFailed", func(t *testing.T) {
		gen := l.Begin()
		assert.True(t, l.Ready(gen, []string{}))

		snap := l.Snapshot()
		assert.Equal(t, StatusReady, snap.Status)
		assert.Empty(t, snap.Error)
	})

	t.Run("FailDropsPreviousData", func(t *testing.T) {
		gen := l.Begin()
		require.True(t, l.Ready(gen, []string{"stale"}))

		gen = l.Begin()
		require.True(t, l.Fail(gen, "network error"))

		snap := l.Snapshot()
		assert.Equal(t, StatusFailed, snap.Status)
		assert.Equal(t, "network error", snap.Error)
		assert.Nil(t, snap.Data, "failed page must not render stale data")
	})
}

func TestLifecycleSingleTransition(t *testing.T) {
	l := NewLifecycle[int]()
	gen := l.Begin()

	require.True(t, l.Ready(gen, 1))
	assert.False(t, l.Ready(gen, 2), "second settle for one load is discarded")
	assert.False(t, l.Fail(gen, "late error"))

	snap := l.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, 1, snap.Data)
}

func TestLifecycleStaleGenerationDropped(t *testing.T) {
	l := NewLifecycle[string]()

	oldGen := l.Begin()
	newGen := l.Begin()

	// The old in-flight response lands after the newer load began.
	assert.False(t, l.Ready(oldGen, "stale"))
	require.True(t, l.Ready(newGen, "fresh"))

	snap := l.Snapshot()
	assert.Equal(t, "fresh", snap.Data)

	// And a stale failure cannot clobber a settled newer load either.
	assert.False(t, l.Fail(oldGen, "stale error"))
	assert.Equal(t, StatusReady, l.Snapshot().Status)
}

func TestLifecycleConcurrentSettles(t *testing.T) {
	l := NewLifecycle[int]()
	gen := l.Begin()

	var wg sync.WaitGroup
	wins := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if l.Ready(gen, v) {
				wins <- v
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for v := range wins {
		winners = append(winners, v)
	}
	require.Len(t, winners, 1, "exactly one settle wins")
	assert.Equal(t, winners[0], l.Snapshot().Data)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	verbatim := func(err error) string { return err.Error() }

	t.Run("Success", func(t *testing.T) {
		snap, err := Load(ctx, func(context.Context) ([]int, error) {
			return []int{1, 2}, nil
		}, verbatim)
		require.NoError(t, err)
		assert.Equal(t, StatusReady, snap.Status)
		assert.Equal(t, []int{1, 2}, snap.Data)
	})

	t.Run("Failure", func(t *testing.T) {
		snap, err := Load(ctx, func(context.Context) ([]int, error) {
			return nil, errors.New("boom")
		}, verbatim)
		require.Error(t, err)
		assert.Equal(t, StatusFailed, snap.Status)
		assert.Equal(t, "boom", snap.Error)
		assert.Nil(t, snap.Data)
	})
}
