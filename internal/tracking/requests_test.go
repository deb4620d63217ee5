package tracking

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionRequests_EmptyTake(t *testing.T) {
	q := NewRegionRequests(0)
	_, ok := q.Take()
	assert.False(t, ok)
}

func TestRegionRequests_LatestWins(t *testing.T) {
	q := NewRegionRequests(DefaultClickRegionSize)
	first := Region{X: 1, Y: 1, Width: 10, Height: 10}
	second := Region{X: 5, Y: 5, Width: 20, Height: 20}

	require.NoError(t, q.Submit(first))
	require.NoError(t, q.Submit(second))

	got, ok := q.Take()
	require.True(t, ok)
	assert.Equal(t, second, got)

	_, ok = q.Take()
	assert.False(t, ok, "a request is consumed once")
}

func TestRegionRequests_RejectsEmptyRegion(t *testing.T) {
	q := NewRegionRequests(DefaultClickRegionSize)
	valid := Region{X: 0, Y: 0, Width: 4, Height: 4}
	require.NoError(t, q.Submit(valid))

	assert.ErrorIs(t, q.Submit(Region{X: 3, Y: 3}), ErrInvalidRegion)
	assert.ErrorIs(t, q.Submit(Region{Width: -2, Height: 5}), ErrInvalidRegion)

	got, ok := q.Take()
	require.True(t, ok)
	assert.Equal(t, valid, got, "rejected submissions leave the pending request alone")
}

func TestRegionRequests_SubmitClick(t *testing.T) {
	q := NewRegionRequests(40)
	require.NoError(t, q.SubmitClick(100, 50))

	got, ok := q.Take()
	require.True(t, ok)
	assert.Equal(t, Region{X: 80, Y: 30, Width: 40, Height: 40}, got)
}

func TestRegionRequests_ConcurrentSubmit(t *testing.T) {
	q := NewRegionRequests(DefaultClickRegionSize)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = q.SubmitClick(i*10+j, j)
			}
		}(i)
	}
	wg.Wait()

	_, ok := q.Take()
	assert.True(t, ok)
	_, ok = q.Take()
	assert.False(t, ok, "at most one request is pending")
}
