package reader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInOrder(t *testing.T) {
	loop := NewLoop()
	var got []int
	for i := 0; i < 5; i++ {
		loop.Dispatch(func() { got = append(got, i) })
	}
	assert.Equal(t, 5, loop.Pending())

	runUntil(t, loop, func() bool { return len(got) == 5 })
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, loop.Pending())
}

func TestLoop_DispatchFromOtherGoroutines(t *testing.T) {
	loop := NewLoop()
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				loop.Dispatch(func() { count++ })
			}
		}()
	}

	runUntil(t, loop, func() bool { return count == 1000 })
	wg.Wait()
	assert.Equal(t, 1000, count)
}

func TestLoop_StopsOnContext(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDispatcherFunc(t *testing.T) {
	ran := false
	var d Dispatcher = DispatcherFunc(func(fn func()) { fn() })
	d.Dispatch(func() { ran = true })
	assert.True(t, ran)
}

func TestError_Kinds(t *testing.T) {
	err := NewParseError("bad header %q", "xyz")
	assert.True(t, errors.Is(err, ErrParse))
	assert.False(t, errors.Is(err, ErrExitStatus))
	assert.Equal(t, KindParse, KindOf(err))
	assert.Equal(t, `bad header "xyz"`, err.Error())

	wrapped := &Error{Kind: KindIO, Msg: "error reading from git", Err: errors.New("broken pipe")}
	assert.True(t, errors.Is(wrapped, ErrIO))
	assert.Equal(t, "error reading from git: broken pipe", wrapped.Error())

	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "exit-status", KindExitStatus.String())
}
