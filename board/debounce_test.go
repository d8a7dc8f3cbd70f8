package board

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerRunsLatestOnly(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)

	var runs atomic.Int32
	var last atomic.Value
	for _, s := range []string{"a", "ac", "acm", "acme"} {
		s := s
		d.Trigger(func() {
			runs.Add(1)
			last.Store(s)
		})
	}

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, "acme", last.Load())
}

func TestDebouncerFlushAndCancel(t *testing.T) {
	d := newDebouncer(time.Hour)

	var runs atomic.Int32
	d.Trigger(func() { runs.Add(1) })
	d.Flush()
	assert.Equal(t, int32(1), runs.Load())

	// Nothing pending any more.
	d.Flush()
	assert.Equal(t, int32(1), runs.Load())

	d.Trigger(func() { runs.Add(1) })
	d.Cancel()
	d.Flush()
	assert.Equal(t, int32(1), runs.Load())
}

func TestDebouncerZeroDelayRunsInline(t *testing.T) {
	d := newDebouncer(0)
	ran := false
	d.Trigger(func() { ran = true })
	assert.True(t, ran)
}
